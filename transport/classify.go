package transport

import (
	"encoding/json"
	"strings"
)

// Phrases pinned by tests. The backend reports 401s as free text, so the
// phrase lists are the contract.
var (
	permissionPhrases = []string{"unauthorized", "permission", "无权", "权限"}
	expiryPhrases     = []string{"expired", "invalid token", "过期"}
)

// Structured codes honored ahead of phrase matching when the backend sends
// them in the "code" field.
const (
	CodeTokenExpired     = "token_expired"
	CodePermissionDenied = "permission_denied"
)

// errorBody is the union of the error shapes the backend emits: its own
// {"error","message"} envelope and the JWT extension's {"msg"}.
type errorBody struct {
	Code    string `json:"code"`
	Error   string `json:"error"`
	Message string `json:"message"`
	Msg     string `json:"msg"`
}

func parseErrorBody(body []byte) errorBody {
	var eb errorBody
	if len(body) == 0 {
		return eb
	}
	_ = json.Unmarshal(body, &eb)
	return eb
}

// text returns the server-provided message, message before msg.
func (eb errorBody) text() string {
	if eb.Message != "" {
		return eb.Message
	}
	return eb.Msg
}

// ClassifyUnauthorized decides whether a 401 message means the access token
// expired or the caller lacks permission. A message is a permission denial
// when it contains a permission phrase and no expiry phrase; everything else,
// the empty message included, is treated as expiry. Matching is
// case-insensitive.
func ClassifyUnauthorized(message string) Kind {
	m := strings.ToLower(message)
	if containsAny(m, expiryPhrases) {
		return KindTokenExpired
	}
	if containsAny(m, permissionPhrases) {
		return KindPermissionDenied
	}
	return KindTokenExpired
}

func classifyUnauthorizedBody(eb errorBody) Kind {
	switch strings.ToLower(eb.Code) {
	case CodeTokenExpired:
		return KindTokenExpired
	case CodePermissionDenied:
		return KindPermissionDenied
	}
	return ClassifyUnauthorized(eb.text())
}

func containsAny(s string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
