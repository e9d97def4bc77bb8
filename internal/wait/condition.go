package wait

import (
	"context"
	"fmt"
	"strings"

	"github.com/xkilldash9x/pagekit/internal/element"
)

// Condition is a predicate evaluated against one handle per poll tick. An
// error from Check counts as "not yet satisfied" for that tick.
type Condition struct {
	Name  string
	Check func(ctx context.Context, h element.Handle) (bool, error)
}

// Visible is satisfied once the element is present and rendered visibly.
var Visible = Condition{
	Name: "visible",
	Check: func(ctx context.Context, h element.Handle) (bool, error) {
		return h.Visible(ctx)
	},
}

// Absent is satisfied once the element is no longer visible, either because
// it left the document or because it is hidden.
var Absent = Condition{
	Name: "absent",
	Check: func(ctx context.Context, h element.Handle) (bool, error) {
		visible, err := h.Visible(ctx)
		if err != nil {
			return false, err
		}
		return !visible, nil
	},
}

// Detached is satisfied once the element is no longer in the document at all.
var Detached = Condition{
	Name: "detached",
	Check: func(ctx context.Context, h element.Handle) (bool, error) {
		exists, err := h.Exists(ctx)
		if err != nil {
			return false, err
		}
		return !exists, nil
	},
}

// HasText is satisfied once the element's text contains substr.
func HasText(substr string) Condition {
	return Condition{
		Name: fmt.Sprintf("containing text %q", substr),
		Check: func(ctx context.Context, h element.Handle) (bool, error) {
			text, err := h.Text(ctx)
			if err != nil {
				return false, err
			}
			return strings.Contains(text, substr), nil
		},
	}
}
