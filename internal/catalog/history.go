package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"adgen/internal/services"
	"adgen/internal/stages"
)

// AdCopy is a stored ad composition and, once rendered, its final image.
type AdCopy struct {
	AdCopyID      string
	ContentID     string
	UserID        string
	CaptionID     string
	GenerationID  string
	Template      string
	AdCopy        map[string]string
	HTML          string
	FinalImageURL string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// RecordGeneration stores a background synthesis result and returns its id.
func (s *Store) RecordGeneration(ctx context.Context, rec stages.GenerationRecord) (string, error) {
	id := uuid.NewString()
	if _, err := s.execWithRetry(ctx,
		`INSERT INTO generations (
            generation_id, content_id, user_id, style, result_url, processing_time, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, rec.ContentID, rec.UserID, rec.Style, rec.ResultURL, rec.Elapsed, s.timestamp(),
	); err != nil {
		return "", fmt.Errorf("insert generation: %w", err)
	}
	return id, nil
}

// RecordCaption stores a generated caption and returns its id.
func (s *Store) RecordCaption(ctx context.Context, rec stages.CaptionRecord) (string, error) {
	id := uuid.NewString()
	caption := strings.TrimSpace(rec.Caption)
	if _, err := s.execWithRetry(ctx,
		`INSERT INTO captions (
            caption_id, content_id, user_id, generation_id, ai_caption, final_caption,
            is_modified, style, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		id, rec.ContentID, rec.UserID, nullableString(rec.GenerationID), caption, caption, rec.Style, s.timestamp(),
	); err != nil {
		return "", fmt.Errorf("insert caption: %w", err)
	}
	return id, nil
}

// RecordAdCopy stores composed markup and returns its id.
func (s *Store) RecordAdCopy(ctx context.Context, rec stages.AdCopyRecord) (string, error) {
	data := rec.AdCopy
	if data == nil {
		data = map[string]string{}
	}
	encoded, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("marshal ad copy: %w", err)
	}
	id := uuid.NewString()
	now := s.timestamp()
	if _, err := s.execWithRetry(ctx,
		`INSERT INTO ad_copies (
            ad_copy_id, content_id, user_id, caption_id, generation_id,
            ad_copy_data, template_used, html_content, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, rec.ContentID, rec.UserID, nullableString(rec.CaptionID), nullableString(rec.GenerationID),
		string(encoded), rec.Template, rec.HTML, now, now,
	); err != nil {
		return "", fmt.Errorf("insert ad copy: %w", err)
	}
	return id, nil
}

// SetAdCopyImage links a rendered image to an ad copy.
func (s *Store) SetAdCopyImage(ctx context.Context, adCopyID, imageURL string) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE ad_copies SET final_image_url = ?, updated_at = ? WHERE ad_copy_id = ?`,
		imageURL, s.timestamp(), adCopyID,
	)
	if err != nil {
		return fmt.Errorf("update ad copy: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return services.Wrap(services.ErrNotFound, "", "update ad copy", fmt.Sprintf("ad copy %s not found", adCopyID), nil)
	}
	return nil
}

// ListAdCopies returns the ad copies owned by userID, newest first.
func (s *Store) ListAdCopies(ctx context.Context, userID string) ([]AdCopy, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ad_copy_id, content_id, user_id, caption_id, generation_id, ad_copy_data,
            template_used, html_content, final_image_url, created_at, updated_at
         FROM ad_copies WHERE user_id = ? ORDER BY created_at DESC, ad_copy_id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list ad copies: %w", err)
	}
	defer rows.Close()

	var out []AdCopy
	for rows.Next() {
		var (
			ac                             AdCopy
			captionID, generationID, final sql.NullString
			data, created, updated         string
		)
		if err := rows.Scan(&ac.AdCopyID, &ac.ContentID, &ac.UserID, &captionID, &generationID, &data,
			&ac.Template, &ac.HTML, &final, &created, &updated); err != nil {
			return nil, fmt.Errorf("scan ad copy: %w", err)
		}
		ac.CaptionID = captionID.String
		ac.GenerationID = generationID.String
		ac.FinalImageURL = final.String
		ac.CreatedAt = parseTime(created)
		ac.UpdatedAt = parseTime(updated)
		if err := json.Unmarshal([]byte(data), &ac.AdCopy); err != nil {
			return nil, fmt.Errorf("decode ad copy: %w", err)
		}
		out = append(out, ac)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ad copies: %w", err)
	}
	return out, nil
}
