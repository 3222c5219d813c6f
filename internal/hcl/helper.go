package hcl

import (
	"context"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/calcgrid/internal/ctxlog"
)

// isExprDefined reports whether an optional attribute was present in the
// source. gohcl fills omitted optional expressions with zero-width
// placeholders, so a nil check is not enough.
func isExprDefined(ctx context.Context, expr hcl.Expression, attrName string) bool {
	if expr == nil {
		return false
	}
	r := expr.Range()
	defined := r.End.Byte > r.Start.Byte
	ctxlog.FromContext(ctx).Debug("Checked optional attribute.",
		"attribute", attrName,
		"hcl_range", r.String(),
		"is_defined", defined,
	)
	return defined
}
