package domain

import (
	"crypto/rand"
	"errors"
	"math/big"
	"regexp"
	"strings"
)

// ErrPrefixInvalid 自定义前缀格式不合法
var ErrPrefixInvalid = errors.New("prefix invalid")

// 前缀规则
const (
	MinPrefixLength     = 3
	MaxPrefixLength     = 30
	DefaultRandomLength = 8
)

var prefixRegex = regexp.MustCompile(`^[a-zA-Z0-9._-]{3,30}$`)

// randomAlphabet 随机前缀字符集 [a-z0-9]
const randomAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// NormalizePrefix 将客户端提供的前缀转为小写并校验。
func NormalizePrefix(prefix string) (string, error) {
	prefix = strings.ToLower(prefix)
	if !prefixRegex.MatchString(prefix) {
		return "", ErrPrefixInvalid
	}
	return prefix, nil
}

// IsValidPrefix 判断前缀是否满足字符集与长度规则
func IsValidPrefix(prefix string) bool {
	return prefixRegex.MatchString(prefix)
}

// RandomPrefix 从 [a-z0-9] 中均匀随机生成指定长度的前缀
func RandomPrefix(length int) (string, error) {
	if length <= 0 {
		length = DefaultRandomLength
	}
	return randomString(randomAlphabet, length)
}

// RandomPassword 生成上游账户使用的随机密码
func RandomPassword(length int) (string, error) {
	return randomString(randomAlphabet+"ABCDEFGHIJKLMNOPQRSTUVWXYZ", length)
}

func randomString(alphabet string, length int) (string, error) {
	max := big.NewInt(int64(len(alphabet)))
	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = alphabet[n.Int64()]
	}
	return string(b), nil
}
