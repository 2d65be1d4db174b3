package reset

import "golang.org/x/crypto/bcrypt"

// BcryptHasher はbcryptによるPasswordHasher実装。
// ログインフローのハッシュ検証と同じコストで生成する。
type BcryptHasher struct{}

// Hash はパスワードをbcryptでハッシュ化する。
func (BcryptHasher) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

var _ PasswordHasher = BcryptHasher{}
