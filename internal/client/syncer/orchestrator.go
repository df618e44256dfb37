package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/nestwatch/internal/logging"
	"github.com/dmitrijs2005/nestwatch/internal/models"
)

// Remote is the part of the remote service a sync pass needs.
type Remote interface {
	Manifest(ctx context.Context, region string) ([]models.ManifestEntry, error)
	Sites(ctx context.Context, region string) ([]models.Site, error)
	Inspections(ctx context.Context, region string) ([]models.Inspection, error)
	UpsertSite(ctx context.Context, region string, site models.Site) (*models.UpsertResult, error)
	DownloadBlob(ctx context.Context, path string) ([]byte, error)
	UploadBlob(ctx context.Context, path string, data []byte) (int, error)
	SyncRegions(ctx context.Context, regions []models.Region) ([]models.Region, error)
}

// LocalStore is the part of the local store a sync pass needs.
type LocalStore interface {
	Regions(ctx context.Context) ([]models.Region, error)
	SetRegions(ctx context.Context, regions []models.Region) error
	LoadRegion(ctx context.Context, region string) ([]models.Site, []models.Inspection, error)
	ApplyRemap(ctx context.Context, site models.Site, res models.UpsertResult) error
	ReplaceRegion(ctx context.Context, region string, sites []models.Site, inspections []models.Inspection) (int, int, error)
	PurgeOtherRegions(ctx context.Context, keep []string) (int, error)
	PendingUploads(ctx context.Context) (map[string][]string, error)
	SetPendingUploads(ctx context.Context, pending map[string][]string) error
}

// Blobs is the device blob store.
type Blobs interface {
	BlobIndex
	Read(path string) ([]byte, error)
	Write(path string, data []byte) error
}

// Options tune one pass.
type Options struct {
	// SkipRegionSync uses the stored region list as is.
	SkipRegionSync bool
	Progress       ProgressFunc
	Now            func() time.Time
}

// Orchestrator runs exactly one sync pass; build a new one per pass. The
// caller must keep other writers away from the local store meanwhile.
type Orchestrator struct {
	remote Remote
	store  LocalStore
	blobs  Blobs
	logger logging.Logger
	opts   Options

	summary Summary
	used    bool
	// unpushed holds sites whose upsert failed, per region; their local
	// copies survive the rebuild so the next pass can retry them.
	unpushed map[string][]models.Site
	// pending holds blob paths whose upload failed, per region. It is
	// loaded from and saved to the local store around the pass.
	pending map[string][]string
}

func NewOrchestrator(remote Remote, store LocalStore, blobs Blobs, logger logging.Logger, opts Options) *Orchestrator {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Progress == nil {
		opts.Progress = func(Progress) {}
	}
	return &Orchestrator{
		remote:   remote,
		store:    store,
		blobs:    blobs,
		logger:   logger,
		opts:     opts,
		unpushed: make(map[string][]models.Site),
		pending:  make(map[string][]string),
	}
}

// Run performs the pass and returns its summary. On error the summary holds
// what was done before the failure.
func (o *Orchestrator) Run(ctx context.Context) (*Summary, error) {
	if o.used {
		return nil, fmt.Errorf("orchestrator already used")
	}
	o.used = true
	o.summary = Summary{Started: o.opts.Now()}
	defer func() { o.summary.Finished = o.opts.Now() }()

	regions, err := o.regions(ctx)
	if err != nil {
		return &o.summary, err
	}
	names := models.RegionNames(regions)

	pending, err := o.store.PendingUploads(ctx)
	if err != nil {
		return &o.summary, fmt.Errorf("load pending uploads: %w", err)
	}
	o.pending = pending

	err = o.sync(ctx, names)
	if serr := o.savePending(context.WithoutCancel(ctx), names); serr != nil {
		err = errors.Join(err, serr)
	}
	return &o.summary, err
}

func (o *Orchestrator) sync(ctx context.Context, names []string) error {
	for _, region := range names {
		if err := o.push(ctx, region); err != nil {
			return err
		}
	}

	for _, region := range names {
		if err := o.rebuild(ctx, region); err != nil {
			return err
		}
	}

	n, err := o.store.PurgeOtherRegions(ctx, names)
	if err != nil {
		return fmt.Errorf("purge stale regions: %w", err)
	}
	if n > 0 {
		o.logger.Info(ctx, "removed records of regions no longer listed", "count", n)
	}

	t := o.summary.Totals()
	o.logger.Info(ctx, "sync finished",
		"regions", len(names), "pushed", t.Pushed, "pulled_sites", t.PulledSites,
		"pulled_inspections", t.PulledInspections, "failed", t.Failed)
	return nil
}

// savePending stores the uploads still owed to the server. Regions that are
// no longer listed are dropped.
func (o *Orchestrator) savePending(ctx context.Context, names []string) error {
	out := make(map[string][]string)
	for _, region := range names {
		var set pathSet
		for _, p := range o.pending[region] {
			set.add(p)
		}
		if paths := set.list(); len(paths) > 0 {
			out[region] = paths
		}
	}
	if err := o.store.SetPendingUploads(ctx, out); err != nil {
		return fmt.Errorf("store pending uploads: %w", err)
	}
	return nil
}

func (o *Orchestrator) regions(ctx context.Context) ([]models.Region, error) {
	local, err := o.store.Regions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load regions: %w", err)
	}
	if o.opts.SkipRegionSync {
		return local, nil
	}

	remote, err := o.remote.SyncRegions(ctx, local)
	if err != nil {
		return nil, fmt.Errorf("sync regions: %w", err)
	}
	if err := o.store.SetRegions(ctx, remote); err != nil {
		return nil, fmt.Errorf("store regions: %w", err)
	}
	return remote, nil
}

// push sends everything the device has ahead of the server for one region.
func (o *Orchestrator) push(ctx context.Context, region string) error {
	sum := o.summary.region(region)
	log := o.logger.With("region", region)

	manifest, err := o.remote.Manifest(ctx, region)
	if err != nil {
		return fmt.Errorf("manifest %s: %w", region, err)
	}
	remote := make(map[string]*models.ManifestEntry, len(manifest))
	for i := range manifest {
		remote[manifest[i].ID] = &manifest[i]
	}

	sites, orphans, err := o.store.LoadRegion(ctx, region)
	if err != nil {
		return fmt.Errorf("load region %s: %w", region, err)
	}
	retry := o.pending[region]
	delete(o.pending, region)
	for _, p := range retry {
		if !o.blobs.Exists(p) {
			log.Warn(ctx, "pending upload is no longer on the device", "path", p)
			continue
		}
		o.upload(ctx, log, sum, region, p)
	}

	for _, in := range orphans {
		log.Warn(ctx, "orphan inspection excluded from sync", "id", in.ID, "site_id", in.SiteID, "error", models.ErrOrphan)
	}
	sum.Orphans = len(orphans)

	type work struct {
		site models.Site
		res  models.ComparisonResult
	}
	var todo []work
	for _, s := range sites {
		res := Compare(s, remote[s.ID], o.blobs)
		if res.Empty() {
			continue
		}
		todo = append(todo, work{site: s, res: res})
	}

	o.report(PhasePush, region, 0, len(todo))
	for i, w := range todo {
		if err := ctx.Err(); err != nil {
			return err
		}

		if w.res.Direction.Has(models.DirectionPush) {
			o.pushSite(ctx, log, sum, region, w.site)
		}
		for _, p := range w.res.BlobsToUpload {
			o.upload(ctx, log, sum, region, p)
		}
		for _, p := range w.res.BlobsToDownload {
			o.download(ctx, log, sum, p)
		}

		o.report(PhasePush, region, i+1, len(todo))
	}

	log.Info(ctx, "region pushed", "pushed", sum.Pushed, "uploaded", sum.Uploaded, "downloaded", sum.Downloaded, "failed", sum.Failed)
	return nil
}

func (o *Orchestrator) pushSite(ctx context.Context, log logging.Logger, sum *RegionSummary, region string, site models.Site) {
	res, err := o.remote.UpsertSite(ctx, region, site)
	if err != nil {
		sum.Failed++
		o.unpushed[region] = append(o.unpushed[region], site)
		log.Error(ctx, "site push failed", "id", site.ID, "error", err)
		return
	}
	sum.Pushed++

	if err := o.store.ApplyRemap(ctx, site, *res); err != nil {
		log.Warn(ctx, "could not apply server ids locally", "id", site.ID, "error", err)
	}
}

// upload sends one blob. A blob the server did not accept is queued for the
// next pass; once the site is rebuilt the paths match and the comparator
// would not ask for it again.
func (o *Orchestrator) upload(ctx context.Context, log logging.Logger, sum *RegionSummary, region, path string) {
	data, err := o.blobs.Read(path)
	if err != nil {
		sum.Failed++
		log.Warn(ctx, "blob queued for upload is not readable", "path", path, "error", err)
		return
	}
	if _, err := o.remote.UploadBlob(ctx, path, data); err != nil {
		sum.Failed++
		o.pending[region] = append(o.pending[region], path)
		log.Error(ctx, "blob upload failed", "path", path, "error", err)
		return
	}
	sum.Uploaded++
}

func (o *Orchestrator) download(ctx context.Context, log logging.Logger, sum *RegionSummary, path string) {
	if o.blobs.Exists(path) {
		return
	}
	data, err := o.remote.DownloadBlob(ctx, path)
	if err != nil {
		sum.Failed++
		log.Error(ctx, "blob download failed", "path", path, "error", err)
		return
	}
	if err := o.blobs.Write(path, data); err != nil {
		sum.Failed++
		log.Error(ctx, "blob not stored", "path", path, "error", err)
		return
	}
	sum.Downloaded++
}

// rebuild replaces the local content of a region with the server snapshot.
// Both listings are fetched before anything local is touched.
func (o *Orchestrator) rebuild(ctx context.Context, region string) error {
	sum := o.summary.region(region)
	log := o.logger.With("region", region)

	sites, err := o.remote.Sites(ctx, region)
	if err != nil {
		return fmt.Errorf("rebuild %s: sites: %w", region, err)
	}
	inspections, err := o.remote.Inspections(ctx, region)
	if err != nil {
		return fmt.Errorf("rebuild %s: inspections: %w", region, err)
	}

	sites, inspections, keptSites, keptInspections := o.withUnpushed(region, sites, inspections)

	nSites, nInspections, err := o.store.ReplaceRegion(ctx, region, sites, inspections)
	if err != nil {
		return fmt.Errorf("rebuild %s: replace: %w", region, err)
	}
	nSites -= keptSites
	nInspections -= keptInspections
	sum.PulledSites, sum.PulledInspections = nSites, nInspections
	if keptSites > 0 {
		log.Warn(ctx, "kept unpushed sites for the next pass", "count", keptSites)
	}

	var missing pathSet
	for _, s := range sites {
		if s.Image != "" && !o.blobs.Exists(s.Image) {
			missing.add(s.Image)
		}
	}
	for _, in := range inspections {
		if in.Image != "" && !o.blobs.Exists(in.Image) {
			missing.add(in.Image)
		}
	}

	paths := missing.list()
	o.report(PhaseRebuild, region, 0, len(paths))
	for i, p := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		o.download(ctx, log, sum, p)
		o.report(PhaseRebuild, region, i+1, len(paths))
	}

	log.Info(ctx, "region rebuilt", "sites", nSites, "inspections", nInspections)
	return nil
}

// withUnpushed puts the local copy of every site of region whose push
// failed in place of the snapshot's copy, together with its stored
// inspections, so the next pass still finds the device ahead of the server.
// It also returns how many sites and inspections were kept that way.
func (o *Orchestrator) withUnpushed(region string, sites []models.Site, inspections []models.Inspection) ([]models.Site, []models.Inspection, int, int) {
	failed := o.unpushed[region]
	if len(failed) == 0 {
		return sites, inspections, 0, 0
	}

	local := make(map[string]struct{}, len(failed))
	for _, s := range failed {
		local[s.ID] = struct{}{}
	}

	outSites := make([]models.Site, 0, len(sites)+len(failed))
	for _, s := range sites {
		if _, ok := local[s.ID]; !ok {
			outSites = append(outSites, s)
		}
	}
	outInspections := make([]models.Inspection, 0, len(inspections))
	for _, in := range inspections {
		if _, ok := local[in.SiteID]; !ok {
			outInspections = append(outInspections, in)
		}
	}

	keptInspections := 0
	for _, s := range failed {
		outSites = append(outSites, s.Bare())
		outInspections = append(outInspections, s.Visits...)
		keptInspections += len(s.Visits)
	}
	return outSites, outInspections, len(failed), keptInspections
}

func (o *Orchestrator) report(phase Phase, region string, done, total int) {
	o.opts.Progress(Progress{Phase: phase, Region: region, Done: done, Total: total})
}
