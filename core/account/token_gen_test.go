package account

import (
	"testing"
	"time"
)

func TestMakeVerifyToken(t *testing.T) {
	gen := tokenGenerator{secretKey: []byte("secret"), timeout: 3 * 24 * time.Hour}

	now := time.Now()
	acc := Account{
		ID:        "acc-1",
		Name:      "T",
		Email:     "t@test.test",
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
		LastLogin: now,
	}
	_ = acc.SetPassword("pwd")

	validToken := gen.makeToken(acc)

	// generate an expired token
	dayLate := gen.timeout + (24 * time.Hour)
	nowFunc = func() time.Time { return time.Now().Add(-dayLate) }
	expiredToken := gen.makeToken(acc)
	nowFunc = time.Now // reset

	// a new login invalidates the token
	loggedIn := acc
	loggedIn.LastLogin = now.Add(time.Minute)

	tests := []struct {
		name    string
		acc     Account
		token   string
		wantErr error
	}{
		{name: "no token", acc: acc, wantErr: errInvalidToken},
		{name: "invalid parts len", acc: acc, token: "lmaooolol", wantErr: errInvalidToken},
		{name: "invalid base32", acc: acc, token: "hahaha-sigsig-sig", wantErr: errInvalidToken},
		{name: "invalid timestamp", acc: acc, token: "NRXWY-sigsig-sig", wantErr: errInvalidToken},
		{name: "invalid token", acc: acc, token: "HE4TS-sigsig-sig", wantErr: errInvalidToken},
		{name: "expired token", acc: acc, token: expiredToken, wantErr: errTokenExpired},
		{name: "used token", acc: loggedIn, token: validToken, wantErr: errInvalidToken},
		{name: "valid token", acc: acc, token: validToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := gen.verifyToken(tt.acc, tt.token); err != tt.wantErr {
				t.Errorf("verifyToken() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEncodeUID(t *testing.T) {
	acc := Account{ID: "2f1c9e34-acc"}
	got, err := decodeUID(EncodeUID(acc))
	if err != nil {
		t.Fatalf("decodeUID() error = %v", err)
	}
	if got != acc.ID {
		t.Errorf("decodeUID() = %v, want %v", got, acc.ID)
	}
}
