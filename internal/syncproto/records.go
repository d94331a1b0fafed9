package syncproto

// ProjectRecord is a project as seen by clients.
type ProjectRecord struct {
	ID            string  `json:"id"`
	ServerID      int64   `json:"server_id"`
	Name          string  `json:"name"`
	ExternalID    *string `json:"external_id"`
	State         *string `json:"state"`
	CompanyID     *int64  `json:"company_id"`
	DrawingsCount int     `json:"drawings_count"`
	CreatedAt     int64   `json:"created_at"`
	UpdatedAt     int64   `json:"updated_at"`
}

func (r ProjectRecord) StableID() string { return r.ID }

// DrawingRecord is a drawing sheet; ProjectID is the project's stable id.
type DrawingRecord struct {
	ID             string  `json:"id"`
	ServerID       int64   `json:"server_id"`
	ProjectID      string  `json:"project_id"`
	SheetNumber    *string `json:"sheet_number"`
	Title          *string `json:"title"`
	Discipline     *string `json:"discipline"`
	StoragePath    *string `json:"storage_path"`
	FileURL        string  `json:"file_url,omitempty"`
	OriginalName   *string `json:"original_name"`
	MimeType       *string `json:"mime_type"`
	FileSize       *int64  `json:"file_size"`
	RevisionNumber *string `json:"revision_number"`
	RevisionDate   *string `json:"revision_date"`
	Status         string  `json:"status"`
	TotalPages     *int    `json:"total_pages"`
	CreatedAt      int64   `json:"created_at"`
	UpdatedAt      int64   `json:"updated_at"`
}

func (r DrawingRecord) StableID() string { return r.ID }

// ObservationRecord is a field observation pinned on a drawing page;
// DrawingID is the drawing's stable id.
type ObservationRecord struct {
	ID          string  `json:"id"`
	ServerID    int64   `json:"server_id"`
	DrawingID   string  `json:"drawing_id"`
	PageNumber  int     `json:"page_number"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Type        string  `json:"type"`
	Description string  `json:"description"`
	PhotoPath   *string `json:"photo_path"`
	PhotoURL    string  `json:"photo_url,omitempty"`
	Is360Photo  bool    `json:"is_360_photo"`
	CreatedAt   int64   `json:"created_at"`
	UpdatedAt   int64   `json:"updated_at"`
}

func (r ObservationRecord) StableID() string { return r.ID }

// ObservationInput is an observation as pushed by a client. Pointer fields
// that are nil keep the server's current value on update and fall back to
// defaults on create.
type ObservationInput struct {
	ID          string   `json:"id" validate:"required"`
	DrawingID   string   `json:"drawing_id"`
	PageNumber  *int     `json:"page_number" validate:"omitempty,gte=1"`
	X           *float64 `json:"x"`
	Y           *float64 `json:"y"`
	Type        *string  `json:"type"`
	Description *string  `json:"description"`
	Is360Photo  *bool    `json:"is_360_photo"`
}
