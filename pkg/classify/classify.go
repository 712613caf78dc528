// Package classify turns camera frames into bin categories using an
// external AI vision service.
//
// The rest of the system depends only on the Classifier interface; the
// bundled Gemini implementation is the default provider.
package classify

import (
	"context"
	"strings"
)

// Category is the waste-sorting class assigned to an object.
type Category string

// Bin categories.
const (
	CategoryLandfill      Category = "Landfill"
	CategoryRecycle       Category = "Recycle"
	CategoryCompost       Category = "Compost"
	CategoryNotApplicable Category = "NotApplicable"
	CategoryError         Category = "Error"
)

// ParseCategory normalizes a category string from the vision service.
// The service is prompted for canonical names but models drift: "N/A",
// "not applicable" and arbitrary casing all map to NotApplicable.
// Anything unrecognized maps to Error.
func ParseCategory(s string) Category {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "landfill", "trash", "garbage":
		return CategoryLandfill
	case "recycle", "recycling", "recyclable":
		return CategoryRecycle
	case "compost", "compostable", "organic":
		return CategoryCompost
	case "n/a", "na", "notapplicable", "not applicable", "none":
		return CategoryNotApplicable
	default:
		return CategoryError
	}
}

// Dispatchable reports whether the category should be signaled to the
// sorter. NotApplicable and Error are never dispatched.
func (c Category) Dispatchable() bool {
	return c == CategoryLandfill || c == CategoryRecycle || c == CategoryCompost
}

// Bin returns the lowercase wire form used in the sorter signal URL.
func (c Category) Bin() string {
	return strings.ToLower(string(c))
}

// String returns the canonical category name.
func (c Category) String() string {
	return string(c)
}

// Result is a single classification outcome. Immutable once created.
type Result struct {
	// Object is the model's short name for what it saw.
	Object string `json:"object"`

	// Category is the bin the object belongs in.
	Category Category `json:"category"`

	// Reason is the model's one-line justification.
	Reason string `json:"reason"`
}

// Classifier sends an image to a vision service and returns a Result.
// Implementations must be safe for use from a single in-flight call at a
// time; the processing loop guarantees calls never overlap.
type Classifier interface {
	Classify(ctx context.Context, jpeg []byte) (Result, error)
}
