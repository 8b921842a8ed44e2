package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"FinCurve/internal/domain/models"
	domrepo "FinCurve/internal/domain/repository"
	"FinCurve/pkg/curve"
	"FinCurve/pkg/logger"
)

type builtCurve struct {
	curve     *curve.Curve
	updatedAt time.Time
}

// CurveRegistry defines, stores and serves named curves. Definitions live in
// the CurveStore; built curves are cached in process for builtTTL so
// instances sharing a store pick up each other's changes.
type CurveRegistry struct {
	store   domrepo.CurveStore
	metrics domrepo.Metrics
	log     *logger.Logger
	built   *gocache.Cache
	now     func() time.Time
}

// NewCurveRegistry creates a registry. builtTTL <= 0 caches built curves
// until they are redefined or removed through this registry.
func NewCurveRegistry(store domrepo.CurveStore, metrics domrepo.Metrics, log *logger.Logger, builtTTL time.Duration) *CurveRegistry {
	if builtTTL <= 0 {
		builtTTL = gocache.NoExpiration
	}
	return &CurveRegistry{
		store:   store,
		metrics: metrics,
		log:     log,
		built:   gocache.New(builtTTL, 10*time.Minute),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" || len(name) > 128 || strings.ContainsAny(name, "/?#*") {
		return fmt.Errorf("%w: %q", ErrInvalidCurveName, name)
	}
	return nil
}

// Define builds cfg and, only if that succeeds, stores it under name,
// replacing any previous definition.
func (r *CurveRegistry) Define(ctx context.Context, name string, cfg curve.Config) (*models.CurveDescription, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	start := time.Now()
	c, err := curve.New(cfg)
	r.metrics.RecordLatency("curve_build", time.Since(start).Seconds())
	if err != nil {
		r.metrics.RecordError(ErrorCode(err))
		return nil, fmt.Errorf("build curve %s: %w", name, err)
	}

	def := &models.CurveDefinition{Name: name, Config: c.Config(), UpdatedAt: r.now()}
	if err := r.store.Save(ctx, def); err != nil {
		r.metrics.RecordError("store_save")
		return nil, err
	}
	r.built.SetDefault(name, &builtCurve{curve: c, updatedAt: def.UpdatedAt})
	r.metrics.RecordCurveBuilt(string(c.Method()))
	r.refreshCount(ctx)

	r.log.Info("curve defined",
		logger.String("curve", name),
		logger.String("method", string(c.Method())),
		logger.Int("pillars", len(c.Times())),
	)
	return describe(name, c, def.UpdatedAt), nil
}

// Remove deletes a definition. Unknown names fail with ErrCurveNotFound.
func (r *CurveRegistry) Remove(ctx context.Context, name string) error {
	r.built.Delete(name)
	if err := r.store.Delete(ctx, name); err != nil {
		return err
	}
	r.refreshCount(ctx)
	r.log.Info("curve removed", logger.String("curve", name))
	return nil
}

func (r *CurveRegistry) List(ctx context.Context) ([]string, error) {
	return r.store.List(ctx)
}

// Get returns the built curve for name, building it from the store on a
// cache miss.
func (r *CurveRegistry) Get(ctx context.Context, name string) (*curve.Curve, error) {
	b, err := r.get(ctx, name)
	if err != nil {
		return nil, err
	}
	return b.curve, nil
}

func (r *CurveRegistry) get(ctx context.Context, name string) (*builtCurve, error) {
	if v, ok := r.built.Get(name); ok {
		return v.(*builtCurve), nil
	}

	def, err := r.store.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	c, err := curve.New(def.Config)
	if err != nil {
		// stored definitions were valid when saved
		r.metrics.RecordError(ErrorCode(err))
		r.log.Error("stored curve no longer builds", logger.String("curve", name), logger.Error(err))
		return nil, fmt.Errorf("build curve %s: %w", name, err)
	}
	b := &builtCurve{curve: c, updatedAt: def.UpdatedAt}
	r.built.SetDefault(name, b)
	return b, nil
}

func (r *CurveRegistry) Describe(ctx context.Context, name string) (*models.CurveDescription, error) {
	b, err := r.get(ctx, name)
	if err != nil {
		return nil, err
	}
	return describe(name, b.curve, b.updatedAt), nil
}

// Rate returns the zero rate of name at t.
func (r *CurveRegistry) Rate(ctx context.Context, name string, t float64) (*models.PointResponse, error) {
	return r.point(ctx, "rate", name, t, func(c *curve.Curve) (float64, error) { return c.Rate(t) })
}

// DiscountFactor returns the discount factor of name at t.
func (r *CurveRegistry) DiscountFactor(ctx context.Context, name string, t float64) (*models.PointResponse, error) {
	return r.point(ctx, "df", name, t, func(c *curve.Curve) (float64, error) { return c.DiscountFactor(t), nil })
}

func (r *CurveRegistry) point(ctx context.Context, op, name string, t float64, eval func(*curve.Curve) (float64, error)) (*models.PointResponse, error) {
	c, err := r.Get(ctx, name)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	v, err := eval(c)
	r.metrics.RecordLatency(op, time.Since(start).Seconds())
	r.metrics.RecordQuery(op, string(c.Method()))
	if err != nil {
		r.metrics.RecordError(ErrorCode(err))
		return nil, fmt.Errorf("curve %s at t=%g: %w", name, t, err)
	}
	return &models.PointResponse{Curve: name, Method: string(c.Method()), T: t, Value: v}, nil
}

// Forward returns the forward rate and amount of name between from and to.
func (r *CurveRegistry) Forward(ctx context.Context, name string, from, to float64) (*models.ForwardResponse, error) {
	c, err := r.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	r.metrics.RecordQuery("forward", string(c.Method()))
	return &models.ForwardResponse{
		Curve:  name,
		From:   from,
		To:     to,
		Rate:   c.ForwardRate(from, to),
		Amount: c.ForwardAmount(from, to),
	}, nil
}

func (r *CurveRegistry) refreshCount(ctx context.Context) {
	names, err := r.store.List(ctx)
	if err != nil {
		r.log.Warn("count curves", logger.Error(err))
		return
	}
	r.metrics.SetCurveCount(len(names))
}

func describe(name string, c *curve.Curve, updatedAt time.Time) *models.CurveDescription {
	return &models.CurveDescription{
		Name:          name,
		Method:        string(c.Method()),
		Times:         c.Times(),
		Zcs:           c.Rates(),
		Dfs:           c.DiscountFactors(),
		ShortEndFlat:  c.ShortEndFlat(),
		LongEndFlat:   c.LongEndFlat(),
		ValuationDate: c.ValuationDate(),
		UpdatedAt:     updatedAt,
	}
}
