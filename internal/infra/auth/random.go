package auth

import "eventos/internal/domain/service"

const verificationTokenBytes = 32

type randomTokenGenerator struct{}

// NewRandomTokenGenerator returns the generator used for verification and
// reset tokens: 32 random bytes, hex encoded.
func NewRandomTokenGenerator() service.TokenGenerator {
	return randomTokenGenerator{}
}

func (randomTokenGenerator) Generate() (string, error) {
	return randomHex(verificationTokenBytes)
}
