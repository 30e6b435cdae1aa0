package settings

import (
	"fmt"
	"strings"
)

const (
	// MaxItemLength bounds a single custom item.
	MaxItemLength = 52
	// DisallowedItemChars are markdown and mention characters items may not contain.
	DisallowedItemChars = "*_~`|<>@#\\[]{}"

	// NoItemsSummary answers a submission that named no items at all.
	NoItemsSummary = "ℹ️ No changes were made because no items were specified."

	reasonDisallowedChars = "contains disallowed characters (" + DisallowedItemChars + ")"
	reasonTooLong         = "is longer than 52 characters"

	// Beyond this many rejections only the distinct reasons are listed.
	maxListedRejections = 5
)

// Rejection is an item that failed validation.
type Rejection struct {
	Item    string
	Reasons []string
}

// AddResult is the outcome of ValidateAddedItems.
type AddResult struct {
	Accepted []string
	// Skipped items already exist, either in the list or earlier in the batch.
	Skipped  []string
	Rejected []Rejection
	Summary  string
}

// RemoveResult is the outcome of ValidateRemovedItems.
type RemoveResult struct {
	ToRemove []string
	NotFound []string
	Summary  string
}

// ValidateAddedItems splits a comma separated submission and checks each item
// against existing (case-insensitively) and the item rules.
func ValidateAddedItems(raw string, existing []string) AddResult {
	seen := make(map[string]struct{}, len(existing))
	for _, it := range existing {
		seen[strings.ToLower(it)] = struct{}{}
	}

	var res AddResult
	for _, item := range splitItems(raw) {
		key := strings.ToLower(item)
		if _, dup := seen[key]; dup {
			res.Skipped = append(res.Skipped, item)
			continue
		}

		var reasons []string
		if strings.ContainsAny(item, DisallowedItemChars) {
			reasons = append(reasons, reasonDisallowedChars)
		}
		if len([]rune(item)) > MaxItemLength {
			reasons = append(reasons, reasonTooLong)
		}
		if len(reasons) > 0 {
			res.Rejected = append(res.Rejected, Rejection{Item: item, Reasons: reasons})
			continue
		}

		seen[key] = struct{}{}
		res.Accepted = append(res.Accepted, item)
	}

	res.Summary = addSummary(res)
	return res
}

func addSummary(res AddResult) string {
	if len(res.Accepted)+len(res.Skipped)+len(res.Rejected) == 0 {
		return NoItemsSummary
	}

	var lines []string
	if n := len(res.Accepted); n > 0 {
		lines = append(lines, fmt.Sprintf("✅ %d item(s) were added to the list.", n))
	}
	if n := len(res.Skipped); n > 0 {
		lines = append(lines, fmt.Sprintf("ℹ️ %d item(s) were already in the list and were skipped.", n))
	}
	if n := len(res.Rejected); n > 0 {
		lines = append(lines, fmt.Sprintf("⚠️ %d item(s) were rejected:", n))
		if n <= maxListedRejections {
			for _, r := range res.Rejected {
				lines = append(lines, fmt.Sprintf("- `%s` %s", r.Item, strings.Join(r.Reasons, " and ")))
			}
		} else {
			for _, reason := range distinctReasons(res.Rejected) {
				lines = append(lines, "- Items "+reason)
			}
		}
	}
	return strings.Join(lines, "\n")
}

// distinctReasons returns every reason once, in first-seen order.
func distinctReasons(rejected []Rejection) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range rejected {
		for _, reason := range r.Reasons {
			if _, ok := seen[reason]; ok {
				continue
			}
			seen[reason] = struct{}{}
			out = append(out, reason)
		}
	}
	return out
}

// ValidateRemovedItems splits a comma separated submission, collapses
// case-insensitive repeats (first spelling wins) and matches each item
// against existing.
func ValidateRemovedItems(raw string, existing []string) RemoveResult {
	tokens := splitItems(raw)
	if len(tokens) == 0 {
		return RemoveResult{Summary: NoItemsSummary}
	}

	present := make(map[string]struct{}, len(existing))
	for _, it := range existing {
		present[strings.ToLower(it)] = struct{}{}
	}

	var res RemoveResult
	seen := make(map[string]struct{}, len(tokens))
	for _, item := range tokens {
		key := strings.ToLower(item)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		if _, ok := present[key]; ok {
			res.ToRemove = append(res.ToRemove, item)
		} else {
			res.NotFound = append(res.NotFound, item)
		}
	}

	var lines []string
	if n := len(res.ToRemove); n > 0 {
		lines = append(lines, fmt.Sprintf("✅ %d item(s) were removed from the list.", n))
	}
	if n := len(res.NotFound); n > 0 {
		lines = append(lines, fmt.Sprintf("⚠️ %d item(s) were not found in the list and were skipped.", n))
	}
	res.Summary = strings.Join(lines, "\n")
	return res
}

func splitItems(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if item := strings.TrimSpace(part); item != "" {
			out = append(out, item)
		}
	}
	return out
}
