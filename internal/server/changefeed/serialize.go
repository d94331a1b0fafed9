package changefeed

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/fieldsync/internal/logging"
	"github.com/dmitrijs2005/fieldsync/internal/server/models"
	"github.com/dmitrijs2005/fieldsync/internal/syncproto"
	"github.com/dmitrijs2005/fieldsync/internal/timex"
)

// IDResolver hands out stable ids for server rows.
type IDResolver interface {
	Ensure(ctx context.Context, table string, serverID int64, current string) (string, error)
}

// URLSigner turns a storage key into a short-lived download URL.
type URLSigner interface {
	PresignGet(ctx context.Context, key string) (string, error)
}

// Serializers renders rows as wire records. Signer is optional; without it
// records carry no download URLs.
type Serializers struct {
	Resolver IDResolver
	Signer   URLSigner
	Logger   logging.Logger
}

// Project renders a project record.
func (s *Serializers) Project(ctx context.Context, p *models.Project) (syncproto.Record, error) {
	id, err := s.Resolver.Ensure(ctx, syncproto.TableProjects, p.ID, p.StableID)
	if err != nil {
		return nil, err
	}
	return syncproto.ProjectRecord{
		ID:            id,
		ServerID:      p.ID,
		Name:          p.Name,
		ExternalID:    nullString(p.ExternalID),
		State:         nullString(p.State),
		CompanyID:     nullInt64(p.CompanyID),
		DrawingsCount: p.DrawingsCount,
		CreatedAt:     timex.ToMillis(p.CreatedAt),
		UpdatedAt:     timex.ToMillis(p.UpdatedAt),
	}, nil
}

// Drawing renders a drawing record; the parent project gets its stable id
// assigned here if it never had one.
func (s *Serializers) Drawing(ctx context.Context, d *models.Drawing) (syncproto.Record, error) {
	id, err := s.Resolver.Ensure(ctx, syncproto.TableDrawings, d.ID, d.StableID)
	if err != nil {
		return nil, err
	}
	projectID, err := s.Resolver.Ensure(ctx, syncproto.TableProjects, d.ProjectID, d.ProjectStableID)
	if err != nil {
		return nil, err
	}

	rec := syncproto.DrawingRecord{
		ID:             id,
		ServerID:       d.ID,
		ProjectID:      projectID,
		SheetNumber:    nullString(d.SheetNumber),
		Title:          nullString(d.Title),
		Discipline:     nullString(d.Discipline),
		StoragePath:    nullString(d.StoragePath),
		OriginalName:   nullString(d.OriginalName),
		MimeType:       nullString(d.MimeType),
		FileSize:       nullInt64(d.FileSize),
		RevisionNumber: nullString(d.RevisionNumber),
		Status:         d.Status,
		CreatedAt:      timex.ToMillis(d.CreatedAt),
		UpdatedAt:      timex.ToMillis(d.UpdatedAt),
	}
	if d.RevisionDate.Valid {
		v := d.RevisionDate.Time.Format("2006-01-02")
		rec.RevisionDate = &v
	}
	if d.TotalPages.Valid {
		v := int(d.TotalPages.Int32)
		rec.TotalPages = &v
	}
	rec.FileURL = s.sign(ctx, syncproto.TableDrawings, id, d.StoragePath)
	return rec, nil
}

// Observation renders an observation record.
func (s *Serializers) Observation(ctx context.Context, o *models.Observation) (syncproto.Record, error) {
	id, err := s.Resolver.Ensure(ctx, syncproto.TableObservations, o.ID, o.StableID)
	if err != nil {
		return nil, err
	}
	drawingID, err := s.Resolver.Ensure(ctx, syncproto.TableDrawings, o.DrawingID, o.DrawingStableID)
	if err != nil {
		return nil, err
	}

	return syncproto.ObservationRecord{
		ID:          id,
		ServerID:    o.ID,
		DrawingID:   drawingID,
		PageNumber:  o.PageNumber,
		X:           o.X,
		Y:           o.Y,
		Type:        o.Type,
		Description: o.Description,
		PhotoPath:   nullString(o.PhotoPath),
		PhotoURL:    s.sign(ctx, syncproto.TableObservations, id, o.PhotoPath),
		Is360Photo:  o.Is360Photo,
		CreatedAt:   timex.ToMillis(o.CreatedAt),
		UpdatedAt:   timex.ToMillis(o.UpdatedAt),
	}, nil
}

// sign presigns key when a signer is configured. A failure only drops the
// URL; the record is still delivered.
func (s *Serializers) sign(ctx context.Context, table, id string, key sql.NullString) string {
	if s.Signer == nil || !key.Valid || key.String == "" {
		return ""
	}
	url, err := s.Signer.PresignGet(ctx, key.String)
	if err != nil {
		if s.Logger != nil {
			s.Logger.Warn(ctx, "presign failed", "table", table, "stable_id", id, "error", err)
		}
		return ""
	}
	return url
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func nullInt64(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}
