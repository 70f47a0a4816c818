package entity

// Provider identifies who owns a user's credentials.
type Provider string

const (
	ProviderLocal    Provider = "LOCAL"
	ProviderGoogle   Provider = "GOOGLE"
	ProviderFacebook Provider = "FACEBOOK"
	ProviderApple    Provider = "APPLE"
)

func (p Provider) String() string {
	return string(p)
}

// IsValid checks if the Provider is a known value.
func (p Provider) IsValid() bool {
	switch p {
	case ProviderLocal, ProviderGoogle, ProviderFacebook, ProviderApple:
		return true
	default:
		return false
	}
}
