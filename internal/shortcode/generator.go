package shortcode

import (
	"crypto/rand"
	"encoding/hex"
)

const (
	// RandomBytes 短码的随机字节数，4 字节即 32 位熵（约 43 亿个取值）
	RandomBytes = 4
	// CodeLength 生成的短码长度（十六进制编码后为字节数的两倍）
	CodeLength = RandomBytes * 2
)

// Generate 生成一个 8 位小写十六进制短码。
// 随机源为 crypto/rand，但短码本身不承担安全职责，只为压低碰撞概率；
// 唯一性由 Registry 在分配时保证，这里不做任何检查。
func Generate() (string, error) {
	b := make([]byte, RandomBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
