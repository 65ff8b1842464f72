package token

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

// secretKey 是一个全局变量，用于存储服务器在启动时生成的32字节密钥。
var secretKey []byte

// DrawPayload 定义了需要被签名的抽奖结果数据结构。
// 它在抽取获胜者的响应中被序列化，前端转盘动画结束后可凭签名向观众证明
// 结果确实由服务器产生，而非前端伪造。
type DrawPayload struct {
	DrawID    string `json:"d"`
	SessionID uint   `json:"s"`
	EntryID   uint   `json:"e"`
}

// GenerateSecretKey 生成一个密码学安全的32字节随机密钥。
func GenerateSecretKey() {
	key := make([]byte, 32)
	_, err := rand.Read(key)
	if err != nil {
		panic("无法生成安全的密钥: " + err.Error())
	}
	secretKey = key
	fmt.Println("HMAC密钥已成功生成。")
}

// GenerateDrawSignature 为一个给定的DrawPayload生成一个HMAC签名。
// 它返回的是签名的Base64编码字符串。
func GenerateDrawSignature(payload DrawPayload) (string, error) {
	// 1. 将payload序列化为JSON字符串
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("无法序列化签名载荷: %w", err)
	}

	// 2. 使用密钥计算HMAC-SHA256
	mac := hmac.New(sha256.New, secretKey)
	mac.Write(payloadBytes)
	signature := mac.Sum(nil)

	// 3. 返回Base64编码的签名
	return base64.StdEncoding.EncodeToString(signature), nil
}

// ValidateDrawSignature 验证一个DrawPayload的签名是否有效。
func ValidateDrawSignature(payload DrawPayload, signatureB64 string) (bool, error) {
	if len(secretKey) == 0 {
		return false, errors.New("HMAC密钥尚未初始化")
	}

	expected, err := GenerateDrawSignature(payload)
	if err != nil {
		return false, err
	}

	// 使用恒定时间比较，避免时序侧信道
	return hmac.Equal([]byte(expected), []byte(signatureB64)), nil
}
