package invoice

import (
	"time"

	"fakturo/internal/core/id"
)

// Revision is an immutable snapshot of the content an update replaced.
// Revisions are numbered from 1 in correction order and never deleted.
type Revision struct {
	ID            id.ID     `json:"id"`
	InvoiceNumber int64     `json:"invoiceNumber,string"`
	Revision      int       `json:"revision"`
	Content       Content   `json:"content"`
	CreatedAt     time.Time `json:"createdAt"`
}
