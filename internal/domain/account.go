package domain

import (
	"errors"
	"strings"
	"time"
)

// ErrAddressInvalid 上游返回的地址无法拆分为前缀与域名
var ErrAddressInvalid = errors.New("address invalid")

// Account 表示一个上游临时邮箱账户在本进程中的凭据。
type Account struct {
	Prefix    string    `json:"prefix"`    // 规范化（小写）后的前缀，注册表主键
	AccountID string    `json:"accountId"` // 上游签发的账户 ID
	Token     string    `json:"-"`         // 上游 Bearer 令牌，不对外暴露
	Address   string    `json:"address"`   // 上游确认的完整地址
	CreatedAt time.Time `json:"createdAt"`
}

// Domain 返回账户地址中的域名部分
func (a *Account) Domain() string {
	_, d, err := SplitAddress(a.Address)
	if err != nil {
		return ""
	}
	return d
}

// GeneratedEmail 是生成接口返回给客户端的结果
type GeneratedEmail struct {
	Prefix string `json:"prefix"`
	Domain string `json:"domain"`
}

// SplitAddress 将 "local@domain" 拆分并转为小写
func SplitAddress(address string) (string, string, error) {
	address = strings.ToLower(strings.TrimSpace(address))
	at := strings.LastIndex(address, "@")
	if at <= 0 || at == len(address)-1 {
		return "", "", ErrAddressInvalid
	}
	return address[:at], address[at+1:], nil
}

// JoinAddress 组装完整邮箱地址
func JoinAddress(prefix, domain string) string {
	return prefix + "@" + domain
}
