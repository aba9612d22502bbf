package security

import (
	"strings"
	"testing"
)

func testHasher(t *testing.T) *Argon2Hasher {
	t.Helper()
	cfg := DefaultArgon2Config()
	cfg.Memory = 8 * 1024
	cfg.Iterations = 1
	hasher, err := NewArgon2Hasher(cfg)
	if err != nil {
		t.Fatalf("NewArgon2Hasher: %v", err)
	}
	return hasher
}

func TestHashAndVerifySuccess(t *testing.T) {
	hasher := testHasher(t)
	password := "correct horse battery staple"

	encoded, err := hasher.Hash(password)
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}

	parts := strings.Split(encoded, "$")
	if len(parts) != 5 {
		t.Fatalf("unexpected hash format: %q", encoded)
	}
	if parts[0] != argon2Variant || parts[1] != argon2Version {
		t.Fatalf("unexpected header: %s$%s", parts[0], parts[1])
	}
	if parts[2] != "m=8192,t=1,p=4" {
		t.Fatalf("encoded hash does not reflect configured parameters: %s", parts[2])
	}

	ok, err := hasher.Verify(password, encoded)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if !ok {
		t.Fatal("Verify returned false for correct password")
	}
}

func TestHashUsesFreshSalt(t *testing.T) {
	hasher := testHasher(t)

	first, err := hasher.Hash("same password")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}
	second, err := hasher.Hash("same password")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}
	if first == second {
		t.Fatal("two hashes of the same password must differ")
	}
}

func TestVerifyIncorrectPassword(t *testing.T) {
	hasher := testHasher(t)

	encoded, err := hasher.Hash("correct horse battery staple")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}

	ok, err := hasher.Verify("Tr0ub4dor&3", encoded)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if ok {
		t.Fatal("Verify returned true for incorrect password")
	}
}

func TestVerifyInvalidFormat(t *testing.T) {
	hasher := testHasher(t)

	for _, encoded := range []string{
		"invalid-format",
		"bcrypt$v=19$m=8192,t=1,p=4$c2FsdHNhbHQ$aGFzaA",
		"argon2id$v=18$m=8192,t=1,p=4$c2FsdHNhbHQ$aGFzaA",
		"argon2id$v=19$m=8192,t=1$c2FsdHNhbHQ$aGFzaA",
	} {
		if _, err := hasher.Verify("password", encoded); err == nil {
			t.Fatalf("expected error for %q", encoded)
		}
	}
}

func TestVerifyEmptyInputs(t *testing.T) {
	hasher := testHasher(t)

	ok, err := hasher.Verify("", "")
	if err != nil {
		t.Fatalf("Verify returned error for empty inputs: %v", err)
	}
	if ok {
		t.Fatal("Verify should return false for empty inputs")
	}
}

func TestNewArgon2HasherRejectsWeakConfig(t *testing.T) {
	cfg := DefaultArgon2Config()
	cfg.SaltLength = 4
	if _, err := NewArgon2Hasher(cfg); err == nil {
		t.Fatal("expected weak salt length to be rejected")
	}
}

func TestRandomKeyGeneratorProducesHexKeys(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 50; i++ {
		key, err := RandomKeyGenerator{}.NewKey()
		if err != nil {
			t.Fatalf("NewKey: %v", err)
		}
		if len(key) != 2*TokenKeyBytes {
			t.Fatalf("expected %d characters, got %d", 2*TokenKeyBytes, len(key))
		}
		if strings.Trim(key, "0123456789abcdef") != "" {
			t.Fatalf("key %q is not lowercase hex", key)
		}
		if _, dup := seen[key]; dup {
			t.Fatalf("duplicate key %q", key)
		}
		seen[key] = struct{}{}
	}
}
