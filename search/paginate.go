package search

// Page sizes mirror the list view: a first screenful, then smaller
// increments on demand.
const (
	InitialPageSize = 20
	PageIncrement   = 15
)

// Pager tracks how many records of a result set are visible. Requesting more
// than remain is clamped, never an error.
type Pager struct {
	total   int
	visible int
}

func NewPager(total int) *Pager {
	p := &Pager{total: total, visible: InitialPageSize}
	p.clamp()

	return p
}

// Visible returns the current display count.
func (p *Pager) Visible() int { return p.visible }

// More extends the display count by one increment, clamped to the total.
// When everything is already visible it is a no-op.
func (p *Pager) More() {
	p.visible += PageIncrement
	p.clamp()
}

// Reset restarts pagination over a result set of the given size.
func (p *Pager) Reset(total int) {
	p.total = total
	p.visible = InitialPageSize
	p.clamp()
}

func (p *Pager) clamp() {
	if p.visible > p.total {
		p.visible = p.total
	}

	if p.visible < 0 {
		p.visible = 0
	}
}

// Slice clamps an offset/limit window onto records. An out-of-range window
// yields an empty page.
func Slice[T any](records []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}

	if offset >= len(records) {
		return nil
	}

	end := len(records)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}

	return records[offset:end]
}
