package catalog

import (
	"strings"
	"time"
)

// Filter narrows catalog listings. Zero-valued fields are ignored.
type Filter struct {
	FrameType FrameType
	Camera    string
	Telescope string
	Object    string
	Filter    string
	From      time.Time // inclusive capture-timestamp lower bound
	To        time.Time // inclusive capture-timestamp upper bound
}

// IsZero reports whether the filter matches the whole catalog.
func (f Filter) IsZero() bool {
	return f.FrameType == "" &&
		strings.TrimSpace(f.Camera) == "" &&
		strings.TrimSpace(f.Telescope) == "" &&
		strings.TrimSpace(f.Object) == "" &&
		strings.TrimSpace(f.Filter) == "" &&
		f.From.IsZero() && f.To.IsZero()
}

func (f Filter) whereClause() (string, []any) {
	var clauses []string
	var args []any

	if f.FrameType != "" {
		clauses = append(clauses, "frame_type = ?")
		args = append(args, string(f.FrameType))
	}
	if camera := strings.TrimSpace(f.Camera); camera != "" {
		clauses = append(clauses, "camera = ?")
		args = append(args, camera)
	}
	if telescope := strings.TrimSpace(f.Telescope); telescope != "" {
		clauses = append(clauses, "telescope = ?")
		args = append(args, telescope)
	}
	if object := strings.TrimSpace(f.Object); object != "" {
		clauses = append(clauses, "object = ?")
		args = append(args, object)
	}
	if filterName := strings.TrimSpace(f.Filter); filterName != "" {
		clauses = append(clauses, "filter = ?")
		args = append(args, filterName)
	}
	if !f.From.IsZero() {
		clauses = append(clauses, "captured_at >= ?")
		args = append(args, f.From.UTC().Format(time.RFC3339))
	}
	if !f.To.IsZero() {
		clauses = append(clauses, "captured_at <= ?")
		args = append(args, f.To.UTC().Format(time.RFC3339))
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}
