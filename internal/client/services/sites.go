// Package services holds the device-side operations on sites and
// inspections. Every change is stamped so the next sync pass picks it up.
package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/nestwatch/internal/logging"
	"github.com/dmitrijs2005/nestwatch/internal/models"
	"github.com/google/uuid"
)

var (
	ErrSiteDeleted  = errors.New("site is deleted")
	ErrNoRegion     = errors.New("no region selected")
	ErrUnknownPhoto = errors.New("unsupported photo type")
)

var photoExt = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".heic": true}

// Store is the part of the local store the services write through.
type Store interface {
	ListSites(ctx context.Context, region string) ([]models.Site, error)
	GetSite(ctx context.Context, id string) (*models.Site, error)
	GetInspection(ctx context.Context, id string) (*models.Inspection, error)
	PutSite(ctx context.Context, site models.Site) error
	PutInspection(ctx context.Context, in models.Inspection) error
}

type BlobWriter interface {
	Write(path string, data []byte) error
}

// SiteDraft carries the user-editable fields of a site.
type SiteDraft struct {
	Name     string
	Category string
	Comment  string
	Lat      float64
	Lng      float64
}

// VisitDraft carries the user-editable fields of an inspection.
type VisitDraft struct {
	Date    time.Time
	Species string
	Comment string
	Cleaned bool
}

type SiteService interface {
	List(ctx context.Context, region string) ([]models.Site, error)
	Get(ctx context.Context, id string) (*models.Site, error)
	AddSite(ctx context.Context, region string, d SiteDraft) (*models.Site, error)
	UpdateSite(ctx context.Context, id string, d SiteDraft) (*models.Site, error)
	DeleteSite(ctx context.Context, id string) error
	AddVisit(ctx context.Context, siteID string, d VisitDraft) (*models.Inspection, error)
	DeleteVisit(ctx context.Context, id string) error
	AttachSitePhoto(ctx context.Context, id, file string) (string, error)
	AttachVisitPhoto(ctx context.Context, id, file string) (string, error)
}

type siteService struct {
	store  Store
	blobs  BlobWriter
	logger logging.Logger
	now    func() time.Time

	mu     sync.Mutex
	lastID time.Time
}

func NewSiteService(store Store, blobs BlobWriter, logger logging.Logger) SiteService {
	return &siteService{store: store, blobs: blobs, logger: logger, now: time.Now}
}

// mintID returns a client id; ids minted by one service never repeat even
// when the clock does not advance.
func (s *siteService) mintID() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.now()
	if !t.After(s.lastID) {
		t = s.lastID.Add(time.Nanosecond)
	}
	s.lastID = t
	return models.NewClientID(t)
}

func (s *siteService) List(ctx context.Context, region string) ([]models.Site, error) {
	if region == "" {
		return nil, ErrNoRegion
	}
	return s.store.ListSites(ctx, region)
}

func (s *siteService) Get(ctx context.Context, id string) (*models.Site, error) {
	site, err := s.store.GetSite(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error retrieving site: %w", err)
	}
	return site, nil
}

func (s *siteService) AddSite(ctx context.Context, region string, d SiteDraft) (*models.Site, error) {
	if region == "" {
		return nil, ErrNoRegion
	}

	site := models.Site{
		ID:     s.mintID(),
		Region: region,
		Stamps: models.Created(s.now()),
	}
	d.apply(&site)

	if err := models.Validate(site); err != nil {
		return nil, fmt.Errorf("invalid site: %w", err)
	}
	if err := s.store.PutSite(ctx, site); err != nil {
		return nil, fmt.Errorf("saving error: %w", err)
	}
	s.logger.Info(ctx, "site added", "id", site.ID, "region", region)
	return &site, nil
}

func (s *siteService) UpdateSite(ctx context.Context, id string, d SiteDraft) (*models.Site, error) {
	site, err := s.liveSite(ctx, id)
	if err != nil {
		return nil, err
	}

	d.apply(site)
	if err := models.Validate(site.Bare()); err != nil {
		return nil, fmt.Errorf("invalid site: %w", err)
	}
	site.Touch(s.now())

	if err := s.store.PutSite(ctx, *site); err != nil {
		return nil, fmt.Errorf("saving error: %w", err)
	}
	return site, nil
}

// DeleteSite tombstones the site and every live inspection of it.
func (s *siteService) DeleteSite(ctx context.Context, id string) error {
	site, err := s.liveSite(ctx, id)
	if err != nil {
		return err
	}

	now := s.now()
	for _, v := range site.LiveVisits() {
		v.MarkDeleted(now)
		if err := s.store.PutInspection(ctx, v); err != nil {
			return fmt.Errorf("error deleting inspection %s: %w", v.ID, err)
		}
	}

	site.MarkDeleted(now)
	if err := s.store.PutSite(ctx, *site); err != nil {
		return fmt.Errorf("error deleting site: %w", err)
	}
	s.logger.Info(ctx, "site deleted", "id", id)
	return nil
}

func (s *siteService) AddVisit(ctx context.Context, siteID string, d VisitDraft) (*models.Inspection, error) {
	site, err := s.liveSite(ctx, siteID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if d.Date.IsZero() {
		d.Date = now
	}
	in := models.Inspection{
		ID:      s.mintID(),
		SiteID:  site.ID,
		Region:  site.Region,
		Date:    d.Date.UTC(),
		Species: d.Species,
		Comment: d.Comment,
		Cleaned: d.Cleaned,
		Stamps:  models.Created(now),
	}

	if err := models.Validate(in); err != nil {
		return nil, fmt.Errorf("invalid inspection: %w", err)
	}
	if err := s.store.PutInspection(ctx, in); err != nil {
		return nil, fmt.Errorf("saving error: %w", err)
	}
	return &in, nil
}

func (s *siteService) DeleteVisit(ctx context.Context, id string) error {
	in, err := s.store.GetInspection(ctx, id)
	if err != nil {
		return fmt.Errorf("error retrieving inspection: %w", err)
	}
	if in.Deleted() {
		return nil
	}

	in.MarkDeleted(s.now())
	if err := s.store.PutInspection(ctx, *in); err != nil {
		return fmt.Errorf("error deleting inspection: %w", err)
	}
	return nil
}

// AttachSitePhoto copies file into the blob store and points the site at it.
func (s *siteService) AttachSitePhoto(ctx context.Context, id, file string) (string, error) {
	site, err := s.liveSite(ctx, id)
	if err != nil {
		return "", err
	}

	p, err := s.storePhoto(site.Region, file)
	if err != nil {
		return "", err
	}

	site.Image = p
	site.Touch(s.now())
	if err := s.store.PutSite(ctx, *site); err != nil {
		return "", fmt.Errorf("saving error: %w", err)
	}
	return p, nil
}

func (s *siteService) AttachVisitPhoto(ctx context.Context, id, file string) (string, error) {
	in, err := s.store.GetInspection(ctx, id)
	if err != nil {
		return "", fmt.Errorf("error retrieving inspection: %w", err)
	}
	if in.Deleted() {
		return "", ErrSiteDeleted
	}

	p, err := s.storePhoto(in.Region, file)
	if err != nil {
		return "", err
	}

	in.Image = p
	in.Touch(s.now())
	if err := s.store.PutInspection(ctx, *in); err != nil {
		return "", fmt.Errorf("saving error: %w", err)
	}
	return p, nil
}

// storePhoto writes the file under img/<region>/<uuid><ext>.
func (s *siteService) storePhoto(region, file string) (string, error) {
	ext := strings.ToLower(filepath.Ext(file))
	if !photoExt[ext] {
		return "", fmt.Errorf("%w: %q", ErrUnknownPhoto, ext)
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("error reading photo: %w", err)
	}

	p := path.Join("img", region, uuid.NewString()+ext)
	if err := s.blobs.Write(p, data); err != nil {
		return "", fmt.Errorf("error storing photo: %w", err)
	}
	return p, nil
}

func (s *siteService) liveSite(ctx context.Context, id string) (*models.Site, error) {
	site, err := s.store.GetSite(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error retrieving site: %w", err)
	}
	if site.Deleted() {
		return nil, ErrSiteDeleted
	}
	return site, nil
}

func (d SiteDraft) apply(s *models.Site) {
	s.Name = d.Name
	s.Category = d.Category
	s.Comment = d.Comment
	s.Lat = d.Lat
	s.Lng = d.Lng
}
