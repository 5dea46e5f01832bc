package db

import "gorm.io/gorm"

// User 定义了用户模型
// Coins 为群组任务奖励的金币，SilverCoins 为个人任务/日记获得的银币，
// 两种货币独立累计，排行榜按合计展示。
type User struct {
	gorm.Model
	Username    string `gorm:"unique;not null"`
	Password    string `gorm:"not null"`
	DisplayName string
	AvatarURL   string
	Coins       int `gorm:"not null;default:0"`
	SilverCoins int `gorm:"not null;default:0"`
}
