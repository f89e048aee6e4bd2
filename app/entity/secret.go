package entity

import "encoding/json"

// SecretPlaceholder is the only form in which a stored secret leaves the service.
const SecretPlaceholder = "******"

// Secret wraps a credential so it cannot be serialized or logged in clear text.
type Secret struct {
	value string
}

func NewSecret(value string) Secret {
	return Secret{value: value}
}

func (s Secret) Reveal() string {
	return s.value
}

func (s Secret) IsSet() bool {
	return s.value != "" && s.value != SecretPlaceholder
}

func (s Secret) IsPlaceholder() bool {
	return s.value == SecretPlaceholder
}

// Resolve returns stored when s is the placeholder echoed back by a client.
func (s Secret) Resolve(stored Secret) Secret {
	if s.IsPlaceholder() {
		return stored
	}
	return s
}

func (s Secret) String() string {
	if s.value == "" {
		return ""
	}
	return SecretPlaceholder
}

func (s Secret) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Secret) UnmarshalJSON(data []byte) error {
	var value string
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}
	s.value = value
	return nil
}
