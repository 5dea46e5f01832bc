package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/maqsadm/internal/db"
	"github.com/maqsadm/internal/service"
)

// UpsertJournal 写入或更新某天的日记
func (a *API) UpsertJournal(c *gin.Context) {
	date, ok := parseDateQuery(c, "date")
	if !ok {
		respondError(c, http.StatusBadRequest, "无效的日期")
		return
	}

	var payload struct {
		Body string `json:"body"`
	}
	if !bindJSON(c, &payload, "请求参数不合法") {
		return
	}

	result, err := a.journal.Upsert(currentUserID(c), date, payload.Body)
	if err != nil {
		respondError(c, http.StatusBadRequest, "保存日记失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"entry":   serializeJournalEntry(*result.Entry),
		"created": result.Created,
	})
}

// GetJournal 返回某天的日记
func (a *API) GetJournal(c *gin.Context) {
	date, ok := parseDateQuery(c, "date")
	if !ok {
		respondError(c, http.StatusBadRequest, "无效的日期")
		return
	}

	entry, err := a.journal.Get(currentUserID(c), date)
	if err != nil {
		if errors.Is(err, service.ErrJournalNotFound) {
			respondError(c, http.StatusNotFound, "当天没有日记")
			return
		}
		respondError(c, http.StatusInternalServerError, "获取日记失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"entry": serializeJournalEntry(*entry)})
}

// ListJournal 返回区间内的日记
func (a *API) ListJournal(c *gin.Context) {
	start, ok := parseDateQuery(c, "start")
	if !ok {
		respondError(c, http.StatusBadRequest, "无效的开始日期")
		return
	}
	end, ok := parseDateQuery(c, "end")
	if !ok {
		respondError(c, http.StatusBadRequest, "无效的结束日期")
		return
	}

	entries, err := a.journal.ListBetween(currentUserID(c), start, end)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取日记列表失败")
		return
	}

	items := make([]gin.H, 0, len(entries))
	for _, entry := range entries {
		items = append(items, serializeJournalEntry(entry))
	}
	c.JSON(http.StatusOK, gin.H{"entries": items})
}

func serializeJournalEntry(entry db.JournalEntry) gin.H {
	return gin.H{
		"id":         entry.ID,
		"entry_date": entry.EntryDate,
		"body":       entry.Body,
		"html":       entry.HTML,
	}
}
