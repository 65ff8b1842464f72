package token

import "testing"

func TestDrawSignatureRoundTrip(t *testing.T) {
	GenerateSecretKey()

	payload := DrawPayload{DrawID: "draw-123", SessionID: 4, EntryID: 17}
	sig, err := GenerateDrawSignature(payload)
	if err != nil {
		t.Fatalf("生成签名失败: %v", err)
	}
	if sig == "" {
		t.Fatal("签名不应为空")
	}

	ok, err := ValidateDrawSignature(payload, sig)
	if err != nil {
		t.Fatalf("验证签名失败: %v", err)
	}
	if !ok {
		t.Error("合法签名未通过验证")
	}
}

func TestDrawSignatureRejectsTampering(t *testing.T) {
	GenerateSecretKey()

	payload := DrawPayload{DrawID: "draw-123", SessionID: 4, EntryID: 17}
	sig, err := GenerateDrawSignature(payload)
	if err != nil {
		t.Fatalf("生成签名失败: %v", err)
	}

	// 篡改载荷后原签名必须失效
	tampered := payload
	tampered.EntryID = 18
	ok, err := ValidateDrawSignature(tampered, sig)
	if err != nil {
		t.Fatalf("验证签名失败: %v", err)
	}
	if ok {
		t.Error("篡改后的载荷不应通过验证")
	}

	// 伪造的签名同样必须失效
	ok, err = ValidateDrawSignature(payload, "bm90LWEtcmVhbC1zaWduYXR1cmU=")
	if err != nil {
		t.Fatalf("验证签名失败: %v", err)
	}
	if ok {
		t.Error("伪造的签名不应通过验证")
	}
}

func TestDrawSignatureChangesWithKey(t *testing.T) {
	payload := DrawPayload{DrawID: "draw-abc", SessionID: 1, EntryID: 2}

	GenerateSecretKey()
	sig1, err := GenerateDrawSignature(payload)
	if err != nil {
		t.Fatalf("生成签名失败: %v", err)
	}

	// 密钥轮换后旧签名不再有效
	GenerateSecretKey()
	ok, err := ValidateDrawSignature(payload, sig1)
	if err != nil {
		t.Fatalf("验证签名失败: %v", err)
	}
	if ok {
		t.Error("密钥轮换后旧签名不应通过验证")
	}
}
