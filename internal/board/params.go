package board

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/zulandar/taskboard/internal/issue"
)

// Option values shared by strategies.
const (
	valueAll  = "all"
	valueMe   = "me"
	valueNone = "none"
)

// setChoice copies params[key] into opts when valid accepts it.
func setChoice(opts Options, params url.Values, key string, valid func(string) bool) {
	if !params.Has(key) {
		return
	}
	v := strings.TrimSpace(params.Get(key))
	if valid(v) {
		opts[key] = v
	}
}

// setFlag copies a boolean params[key] into opts. Unparseable values are
// ignored.
func setFlag(opts Options, params url.Values, key string) {
	if !params.Has(key) {
		return
	}
	switch strings.ToLower(strings.TrimSpace(params.Get(key))) {
	case "1", "true", "on", "yes":
		opts[key] = true
	case "0", "false", "off", "no", "":
		opts[key] = false
	}
}

func oneOf(values ...string) func(string) bool {
	return func(v string) bool {
		for _, candidate := range values {
			if v == candidate {
				return true
			}
		}
		return false
	}
}

// idOr accepts a positive numeric id or one of the given keywords.
func idOr(keywords ...string) func(string) bool {
	keyword := oneOf(keywords...)
	return func(v string) bool {
		if keyword(v) {
			return true
		}
		_, ok := parseID(v)
		return ok
	}
}

func parseID(v string) (uint, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// applyAssignee narrows f by an assignee option value.
func applyAssignee(f *issue.Filter, value string, userID uint) {
	switch value {
	case "", valueAll:
	case valueMe:
		id := userID
		f.AssignedToID = &id
	case valueNone:
		f.Unassigned = true
	default:
		if id, ok := parseID(value); ok {
			f.AssignedToID = &id
		}
	}
}

// applyVersion narrows f by a version option value.
func applyVersion(f *issue.Filter, value string) {
	switch value {
	case "", valueAll:
	case valueNone:
		f.NoVersion = true
	default:
		if id, ok := parseID(value); ok {
			f.FixedVersionID = &id
		}
	}
}

// optionalID parses a reference that may be cleared with "" or "none".
func optionalID(params url.Values, key string) (interface{}, error) {
	v := strings.TrimSpace(params.Get(key))
	if v == "" || v == valueNone {
		return nil, nil
	}
	id, ok := parseID(v)
	if !ok {
		return nil, fmt.Errorf("%w: %s=%q", ErrInvalidParam, key, v)
	}
	return id, nil
}

// parseUpdates turns update parameters into issue columns.
func parseUpdates(params url.Values) (map[string]interface{}, error) {
	updates := make(map[string]interface{})
	if params.Has("subject") {
		updates["subject"] = strings.TrimSpace(params.Get("subject"))
	}
	if params.Has("done_ratio") {
		ratio, err := strconv.Atoi(strings.TrimSpace(params.Get("done_ratio")))
		if err != nil {
			return nil, fmt.Errorf("%w: done_ratio=%q", ErrInvalidParam, params.Get("done_ratio"))
		}
		updates["done_ratio"] = ratio
	}
	for _, key := range []string{"assigned_to_id", "fixed_version_id"} {
		if !params.Has(key) {
			continue
		}
		id, err := optionalID(params, key)
		if err != nil {
			return nil, err
		}
		updates[key] = id
	}
	if len(updates) == 0 {
		return nil, fmt.Errorf("%w: no fields to update", ErrInvalidParam)
	}
	return updates, nil
}
