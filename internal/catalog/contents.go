package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"adgen/internal/services"
	"adgen/internal/stage"
	"adgen/internal/stages"
)

// Content is a registered product image.
type Content struct {
	ContentID   string
	UserID      string
	ImageURL    string
	Category    string
	SubCategory string
	Color       string
	Material    string
	Fit         string
	StyleTags   []string
	CreatedAt   time.Time
}

// NewContent describes a content item to register.
type NewContent struct {
	ImageURL    string
	Category    string
	SubCategory string
	Color       string
	Material    string
	Fit         string
	StyleTags   []string
}

const contentColumns = `content_id, user_id, image_url, category, sub_category,
    color, material, fit, style_tags, created_at`

// AddContent registers a product image for userID.
func (s *Store) AddContent(ctx context.Context, userID string, in NewContent) (Content, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Content{}, services.Wrap(services.ErrValidation, "", "add content", "user id is required", nil)
	}
	imageURL := strings.TrimSpace(in.ImageURL)
	if err := stage.RequireImageURL("", "content", imageURL); err != nil {
		return Content{}, err
	}

	tags := make([]string, 0, len(in.StyleTags))
	for _, tag := range in.StyleTags {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return Content{}, fmt.Errorf("marshal style tags: %w", err)
	}

	content := Content{
		ContentID:   uuid.NewString(),
		UserID:      userID,
		ImageURL:    imageURL,
		Category:    stage.NormalizeCategory(in.Category),
		SubCategory: strings.TrimSpace(in.SubCategory),
		Color:       strings.TrimSpace(in.Color),
		Material:    strings.TrimSpace(in.Material),
		Fit:         strings.TrimSpace(in.Fit),
		StyleTags:   tags,
	}
	created := s.timestamp()
	if _, err := s.execWithRetry(ctx,
		`INSERT INTO contents (`+contentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		content.ContentID,
		content.UserID,
		content.ImageURL,
		nullableString(content.Category),
		nullableString(content.SubCategory),
		nullableString(content.Color),
		nullableString(content.Material),
		nullableString(content.Fit),
		string(tagsJSON),
		created,
	); err != nil {
		return Content{}, fmt.Errorf("insert content: %w", err)
	}
	content.CreatedAt = parseTime(created)
	return content, nil
}

// GetContent returns the content item when userID owns it. Missing and
// foreign items are both reported as not found.
func (s *Store) GetContent(ctx context.Context, userID, contentID string) (Content, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+contentColumns+` FROM contents WHERE content_id = ? AND user_id = ?`,
		strings.TrimSpace(contentID), strings.TrimSpace(userID),
	)
	content, err := scanContent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Content{}, services.Wrap(services.ErrNotFound, "", "get content",
			fmt.Sprintf("content %s not found", contentID), nil)
	}
	if err != nil {
		return Content{}, fmt.Errorf("get content: %w", err)
	}
	return content, nil
}

// ListContents returns the contents owned by userID, newest first.
func (s *Store) ListContents(ctx context.Context, userID string) ([]Content, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+contentColumns+` FROM contents WHERE user_id = ? ORDER BY created_at DESC, content_id`,
		strings.TrimSpace(userID),
	)
	if err != nil {
		return nil, fmt.Errorf("list contents: %w", err)
	}
	defer rows.Close()

	var out []Content
	for rows.Next() {
		content, err := scanContent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan content: %w", err)
		}
		out = append(out, content)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contents: %w", err)
	}
	return out, nil
}

// CheckContent reports whether contentID exists and belongs to userID.
func (s *Store) CheckContent(ctx context.Context, userID, contentID string) error {
	_, err := s.GetContent(ctx, userID, contentID)
	return err
}

// ResolveAsset returns the pipeline view of a content item.
func (s *Store) ResolveAsset(ctx context.Context, userID, contentID string) (stages.Asset, error) {
	content, err := s.GetContent(ctx, userID, contentID)
	if err != nil {
		return stages.Asset{}, err
	}
	return stages.Asset{
		ContentID:   content.ContentID,
		UserID:      content.UserID,
		ImageURL:    content.ImageURL,
		Category:    content.Category,
		SubCategory: content.SubCategory,
		Color:       content.Color,
		Material:    content.Material,
		Fit:         content.Fit,
		StyleTags:   append([]string(nil), content.StyleTags...),
	}, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContent(row rowScanner) (Content, error) {
	var (
		content                                     Content
		category, subCategory, color, material, fit sql.NullString
		tagsJSON, created                           string
	)
	if err := row.Scan(
		&content.ContentID,
		&content.UserID,
		&content.ImageURL,
		&category,
		&subCategory,
		&color,
		&material,
		&fit,
		&tagsJSON,
		&created,
	); err != nil {
		return Content{}, err
	}
	content.Category = category.String
	content.SubCategory = subCategory.String
	content.Color = color.String
	content.Material = material.String
	content.Fit = fit.String
	content.CreatedAt = parseTime(created)
	if tagsJSON != "" {
		if err := json.Unmarshal([]byte(tagsJSON), &content.StyleTags); err != nil {
			return Content{}, fmt.Errorf("decode style tags: %w", err)
		}
	}
	return content, nil
}
