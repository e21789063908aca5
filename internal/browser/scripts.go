package browser

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Page scripts shared by both backends. Each is a function expression; the
// chrome backend calls it with literal arguments, the WebDriver backend
// applies it to the script arguments.
const (
	existsScript = `function(id) {
  return document.getElementById(id) !== null;
}`

	readOptionsScript = `function(id) {
  const el = document.getElementById(id);
  if (el === null) { return {found: false, options: []}; }
  return {found: true, options: Array.from(el.options || []).map(o => ({value: o.value, label: o.text.trim()}))};
}`

	selectScript = `function(id, wanted, byLabel) {
  const el = document.getElementById(id);
  if (el === null) { return "missing"; }
  const opt = Array.from(el.options || []).find(o => byLabel ? o.text.trim() === wanted : o.value === wanted);
  if (opt === undefined) { return "rejected"; }
  el.value = opt.value;
  el.dispatchEvent(new Event("change", {bubbles: true}));
  return "ok";
}`
)

// Select script results.
const (
	selectOK       = "ok"
	selectMissing  = "missing"
	selectRejected = "rejected"
)

type readOptionsResult struct {
	Found   bool     `json:"found"`
	Options []Option `json:"options"`
}

// callExpression renders fn applied to args as a JavaScript expression.
func callExpression(fn string, args ...any) (string, error) {
	encoded := make([]string, len(args))
	for i, a := range args {
		b, err := json.Marshal(a)
		if err != nil {
			return "", fmt.Errorf("failed to encode script argument: %w", err)
		}
		encoded[i] = string(b)
	}
	return "(" + fn + ")(" + strings.Join(encoded, ", ") + ")", nil
}

// applyScript renders fn as a WebDriver script body that forwards its arguments.
func applyScript(fn string) string {
	return "return (" + fn + ").apply(null, arguments);"
}

// decodeResult converts a loosely typed script result into out.
func decodeResult(raw any, out any) error {
	b, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("failed to encode script result: %w", err)
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("unexpected script result %s: %w", b, err)
	}
	return nil
}

// selectError maps a select script result to an error.
func selectError(id, wanted, result string) error {
	switch result {
	case selectOK:
		return nil
	case selectMissing:
		return fmt.Errorf("%w: %s", ErrControlNotFound, id)
	case selectRejected:
		return fmt.Errorf("%w: %s=%q", ErrOptionRejected, id, wanted)
	default:
		return fmt.Errorf("unexpected select result %q for %s", result, id)
	}
}
