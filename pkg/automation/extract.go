package automation

import (
	"fmt"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
)

// AttributeValue is the result of reading an element attribute. Present is
// false when the attribute does not exist, which is distinct from an
// attribute whose value is the empty string.
type AttributeValue struct {
	Value   string
	Present bool
}

// elementReader is the subset of playwright.ElementHandle used to read values.
type elementReader interface {
	InnerHTML() (string, error)
	InnerText() (string, error)
	Evaluate(expression string, arg ...interface{}) (interface{}, error)
}

// pageQuerier is the subset of playwright.Page used to locate elements.
type pageQuerier interface {
	WaitForSelector(selector string, options ...playwright.PageWaitForSelectorOptions) (playwright.ElementHandle, error)
	QuerySelectorAll(selector string) ([]playwright.ElementHandle, error)
}

const getAttributeScript = "(el, name) => el.getAttribute(name)"

// readAttribute maps "html" and "text" to the element's inner markup and
// text, and anything else to the named attribute.
func readAttribute(el elementReader, attribute string) (AttributeValue, error) {
	switch attribute {
	case AttributeHTML:
		html, err := el.InnerHTML()
		if err != nil {
			return AttributeValue{}, err
		}
		return AttributeValue{Value: html, Present: true}, nil

	case AttributeText:
		text, err := el.InnerText()
		if err != nil {
			return AttributeValue{}, err
		}
		return AttributeValue{Value: text, Present: true}, nil

	default:
		raw, err := el.Evaluate(getAttributeScript, attribute)
		if err != nil {
			return AttributeValue{}, err
		}
		if raw == nil {
			return AttributeValue{}, nil
		}
		value, ok := raw.(string)
		if !ok {
			value = fmt.Sprint(raw)
		}
		return AttributeValue{Value: value, Present: true}, nil
	}
}

func millis(d time.Duration) *float64 {
	return playwright.Float(float64(d / time.Millisecond))
}

// extractElement waits for the selector to reach req.State and reads
// req.Attribute. A missing element, absent or blank value, or a value without
// req.ReadyText yields ErrElementNotReady.
func extractElement(page pageQuerier, req ElementRequest, timeout time.Duration) (string, error) {
	state := playwright.WaitForSelectorState(req.State)
	el, err := page.WaitForSelector(req.Selector, playwright.PageWaitForSelectorOptions{
		State:   &state,
		Timeout: millis(timeout),
	})
	if err != nil {
		return "", err
	}
	if el == nil {
		return "", fmt.Errorf("%w: no element matches %q", ErrElementNotReady, req.Selector)
	}

	value, err := readAttribute(el, req.Attribute)
	if err != nil {
		return "", err
	}

	switch {
	case !value.Present:
		return "", fmt.Errorf("%w: attribute %q is absent", ErrElementNotReady, req.Attribute)
	case strings.TrimSpace(value.Value) == "":
		return "", fmt.Errorf("%w: %s is empty", ErrElementNotReady, req.Attribute)
	case req.ReadyText != "" && !strings.Contains(value.Value, req.ReadyText):
		return "", fmt.Errorf("%w: %s does not contain %q", ErrElementNotReady, req.Attribute, req.ReadyText)
	}

	return value.Value, nil
}

// extractAll waits for the first match, then reads req.Attribute from every
// match in document order. Absent attributes become "".
func extractAll(page pageQuerier, req ElementListRequest, timeout time.Duration) ([]string, error) {
	state := playwright.WaitForSelectorStateAttached
	if _, err := page.WaitForSelector(req.Selector, playwright.PageWaitForSelectorOptions{
		State:   state,
		Timeout: millis(timeout),
	}); err != nil {
		return nil, err
	}

	elements, err := page.QuerySelectorAll(req.Selector)
	if err != nil {
		return nil, err
	}

	values := make([]string, 0, len(elements))
	for _, el := range elements {
		value, err := readAttribute(el, req.Attribute)
		if err != nil {
			return nil, err
		}
		values = append(values, value.Value)
	}
	return values, nil
}
