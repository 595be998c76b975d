package session

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// AdminRole is the role value that grants administrator views.
const AdminRole = "Administrator"

// UserProfile is the cached user. Fields the client does not interpret are
// kept in Extra and written back unchanged.
type UserProfile struct {
	ID       int64
	Username string
	Email    string
	Role     string
	Extra    map[string]json.RawMessage
}

// IsAdmin reports whether the profile carries the administrator role.
func (u *UserProfile) IsAdmin() bool {
	return u != nil && u.Role == AdminRole
}

// Clone returns a deep copy.
func (u *UserProfile) Clone() *UserProfile {
	if u == nil {
		return nil
	}
	out := *u
	if u.Extra != nil {
		out.Extra = make(map[string]json.RawMessage, len(u.Extra))
		for k, v := range u.Extra {
			out.Extra[k] = append(json.RawMessage(nil), v...)
		}
	}
	return &out
}

func (u *UserProfile) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if fields == nil {
		return fmt.Errorf("user profile is null")
	}

	var p UserProfile
	// Ids that are not integers stay in Extra so role still applies.
	if raw, ok := fields["id"]; ok {
		if id, err := decodeID(raw); err == nil {
			p.ID = id
			delete(fields, "id")
		}
	}
	for key, dst := range map[string]*string{"username": &p.Username, "email": &p.Email, "role": &p.Role} {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		if string(raw) != "null" {
			if err := json.Unmarshal(raw, dst); err != nil {
				return fmt.Errorf("user %s: %w", key, err)
			}
		}
		delete(fields, key)
	}
	if len(fields) > 0 {
		p.Extra = fields
	}
	*u = p
	return nil
}

func (u UserProfile) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(u.Extra)+4)
	for k, v := range u.Extra {
		out[k] = v
	}
	if _, ok := u.Extra["id"]; !ok || u.ID != 0 {
		out["id"] = u.ID
	}
	out["username"] = u.Username
	if u.Email != "" {
		out["email"] = u.Email
	}
	if u.Role != "" {
		out["role"] = u.Role
	}
	return json.Marshal(out)
}

// decodeID accepts numeric ids and numeric strings.
func decodeID(raw json.RawMessage) (int64, error) {
	if string(raw) == "null" {
		return 0, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.Int64()
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("user id: %w", err)
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("user id: %w", err)
	}
	return id, nil
}

// DecodeUser parses a stored user value.
func DecodeUser(raw string) (*UserProfile, error) {
	var u UserProfile
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// EncodeUser serializes u for the store.
func EncodeUser(u *UserProfile) (string, error) {
	if u == nil {
		return "", fmt.Errorf("nil user profile")
	}
	b, err := json.Marshal(u)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// AuthData is the result of a successful login.
type AuthData struct {
	AccessToken  string
	RefreshToken string
	User         *UserProfile
}
