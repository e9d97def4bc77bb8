package browser

import (
	_ "embed"
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/pagekit/internal/element"
)

//go:embed resolver.js
var resolverTemplate string

// callPlaceholder is replaced in resolver.js with the JSON encoded call.
const callPlaceholder = "/*{{PAGEKIT_CALL}}*/"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// step locates one element relative to the previous step's node.
type step struct {
	Strategy element.Strategy `json:"strategy"`
	Value    string           `json:"value"`
	Index    int              `json:"index"`
}

type call struct {
	Steps []step `json:"steps"`
	Op    string `json:"op"`
	Arg   *step  `json:"arg,omitempty"`
}

// result mirrors the object returned by resolver.js.
type result struct {
	Found bool    `json:"found"`
	OK    bool    `json:"ok"`
	Text  string  `json:"text"`
	Count int     `json:"count"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

const (
	opExists  = "exists"
	opVisible = "visible"
	opText    = "text"
	opCount   = "count"
	opCenter  = "center"
	opFocus   = "focus"
)

// buildScript injects the encoded call into the resolver template.
func buildScript(c call) (string, error) {
	if !strings.Contains(resolverTemplate, callPlaceholder) {
		return "", fmt.Errorf("resolver template does not contain the placeholder %s", callPlaceholder)
	}
	if c.Steps == nil {
		c.Steps = []step{}
	}
	encoded, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encode resolver call: %w", err)
	}
	return strings.Replace(resolverTemplate, callPlaceholder, string(encoded), 1), nil
}
