/*
handlers.go - HTTP API handlers for the cash-flow engine

PURPOSE:
  Exposes the contract evaluation engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to the terms
  factory, the instruments engine and the portfolio runner.

ENDPOINTS:
  Contracts:
    GET    /api/contracts                 List stored contracts
    POST   /api/contracts                 Store contract terms
    GET    /api/contracts/{id}            Get stored terms
    GET    /api/contracts/{id}/runs       Recorded runs, oldest first
    POST   /api/contracts/{id}/evaluate   Evaluate and record a run

  Evaluation:
    POST   /api/evaluate                  Evaluate inline terms (not recorded)
    POST   /api/portfolio/evaluate        Evaluate stored contracts together
    GET    /api/runs/{id}                 Get a recorded run
    GET    /api/contract-types            Supported contract types

  Risk factors:
    POST   /api/observations              Add market observations
    POST   /api/contingent-events         Add unscheduled events

  Calendars:
    GET    /api/calendars                 Known calendar codes
    POST   /api/calendars/{name}/holidays Add a holiday

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: Database access
  - Terms: JSON to typed terms conversion
  - Engine: Single-contract evaluation
  - Portfolio: Dependency-ordered batch evaluation
  - Calendars: Holiday calendars shared with the engine

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Load terms and risk factors from the store
  4. Evaluate, record the run
  5. Serialize response

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Malformed body, unparsable dates or values
  - 404: Contract or run not found
  - 409: Duplicate run
  - 422: Terms or risk factors the engine rejects
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/warp/cashflow-engine/conventions"
	"github.com/warp/cashflow-engine/factory"
	"github.com/warp/cashflow-engine/generic"
	"github.com/warp/cashflow-engine/instruments"
	"github.com/warp/cashflow-engine/portfolio"
	"github.com/warp/cashflow-engine/riskfactor"
	"github.com/warp/cashflow-engine/store/sqlite"
)

const maxBodyBytes = 1 << 20

// errBadRequest marks request values that could not be parsed.
var errBadRequest = errors.New("bad request")

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store     *sqlite.Store
	Terms     *factory.TermsFactory
	Engine    *instruments.Engine
	Portfolio *portfolio.Runner
	Calendars *conventions.Registry
	Logger    *slog.Logger

	now func() time.Time

	// Track currently loaded scenario
	currentScenario string
}

// Options configures a Handler. Zero values pick defaults.
type Options struct {
	Calendars *conventions.Registry
	Logger    *slog.Logger
	// Workers bounds parallel contract evaluations in portfolio runs.
	Workers int
}

// NewHandler creates a new handler with the given store.
func NewHandler(store *sqlite.Store, opts Options) *Handler {
	if opts.Calendars == nil {
		opts.Calendars = conventions.NewRegistry()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	engine := instruments.NewEngine(opts.Calendars, opts.Logger)
	return &Handler{
		Store:     store,
		Terms:     factory.NewTermsFactory(),
		Engine:    engine,
		Portfolio: portfolio.NewRunner(engine, portfolio.Options{Workers: opts.Workers, Logger: opts.Logger}),
		Calendars: opts.Calendars,
		Logger:    opts.Logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// =============================================================================
// CONTRACT ENDPOINTS
// =============================================================================

// ListContracts returns every stored contract.
// GET /api/contracts
func (h *Handler) ListContracts(w http.ResponseWriter, r *http.Request) {
	records, err := h.Store.ListContracts(r.Context())
	if err != nil {
		h.fail(w, "Failed to list contracts", err)
		return
	}
	dtos := make([]ContractDTO, len(records))
	for i, rec := range records {
		dtos[i] = toContractDTO(rec)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateContract stores contract terms. The terms must parse and name a
// supported contract type; a missing contractID is generated.
// POST /api/contracts
func (h *Handler) CreateContract(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	rec, err := h.saveContract(ctx, body)
	if err != nil {
		h.fail(w, "Invalid contract terms", err)
		return
	}
	writeJSON(w, http.StatusCreated, toContractDTO(rec))
}

func (h *Handler) saveContract(ctx context.Context, body []byte) (sqlite.ContractRecord, error) {
	doc, err := factory.DecodeJSON(body)
	if err != nil {
		return sqlite.ContractRecord{}, err
	}
	if id, _ := doc[string(generic.AttrContractID)].(string); id == "" {
		doc[string(generic.AttrContractID)] = uuid.NewString()
	}
	terms, err := h.Terms.FromDocument(doc)
	if err != nil {
		return sqlite.ContractRecord{}, err
	}
	tag, err := terms.ContractType()
	if err != nil {
		return sqlite.ContractRecord{}, err
	}
	ct, err := instruments.ParseContractType(tag)
	if err != nil {
		return sqlite.ContractRecord{}, err
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return sqlite.ContractRecord{}, fmt.Errorf("encode terms: %w", err)
	}
	id := terms.ContractID()
	if err := h.Store.SaveContract(ctx, sqlite.ContractRecord{
		ID:           id,
		ContractType: ct.String(),
		Terms:        raw,
	}); err != nil {
		return sqlite.ContractRecord{}, err
	}
	h.Logger.Info("contract stored", "contract", id, "type", ct)
	return h.Store.GetContract(ctx, id)
}

// GetContract returns stored terms.
// GET /api/contracts/{id}
func (h *Handler) GetContract(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Store.GetContract(r.Context(), generic.ContractID(chi.URLParam(r, "id")))
	if err != nil {
		h.fail(w, "Failed to get contract", err)
		return
	}
	writeJSON(w, http.StatusOK, toContractDTO(rec))
}

// ListContractRuns returns the recorded runs of one contract.
// GET /api/contracts/{id}/runs
func (h *Handler) ListContractRuns(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := generic.ContractID(chi.URLParam(r, "id"))

	if _, err := h.Store.GetContract(ctx, id); err != nil {
		h.fail(w, "Failed to get contract", err)
		return
	}
	runs, err := h.Store.ListRuns(ctx, id)
	if err != nil {
		h.fail(w, "Failed to list runs", err)
		return
	}
	dtos := make([]RunDTO, len(runs))
	for i, run := range runs {
		dtos[i] = toRunDTO(run)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// EVALUATION ENDPOINTS
// =============================================================================

// EvaluateContract evaluates a stored contract against the stored risk
// factors and records the run. Contracts it references by ID are
// evaluated first. The recorded run keeps the full timeline; the filter
// only shapes the response.
// POST /api/contracts/{id}/evaluate
func (h *Handler) EvaluateContract(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := generic.ContractID(chi.URLParam(r, "id"))

	var req EvaluateRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	analysis, filter, err := parseEvaluation(req.AnalysisDates, req.Filter)
	if err != nil {
		h.fail(w, "Invalid evaluation request", err)
		return
	}

	evals, _, err := h.evaluateStored(ctx, []generic.ContractID{id}, analysis)
	if err != nil {
		h.fail(w, "Evaluation failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, filtered(evals[0].run, evals[0].events, filter))
}

// EvaluatePortfolio evaluates stored contracts in dependency order and
// records one run per requested contract.
// POST /api/portfolio/evaluate
func (h *Handler) EvaluatePortfolio(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req PortfolioEvaluateRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if len(req.ContractIDs) == 0 {
		writeError(w, http.StatusBadRequest, "contract_ids is required", nil)
		return
	}
	analysis, filter, err := parseEvaluation(req.AnalysisDates, req.Filter)
	if err != nil {
		h.fail(w, "Invalid evaluation request", err)
		return
	}

	ids := make([]generic.ContractID, len(req.ContractIDs))
	for i, id := range req.ContractIDs {
		ids[i] = generic.ContractID(id)
	}
	evals, levels, err := h.evaluateStored(ctx, ids, analysis)
	if err != nil {
		h.fail(w, "Portfolio evaluation failed", err)
		return
	}

	resp := PortfolioResponse{Levels: make([][]string, len(levels)), Runs: make([]RunDTO, len(evals))}
	for i, level := range levels {
		resp.Levels[i] = make([]string, len(level))
		for j, id := range level {
			resp.Levels[i][j] = string(id)
		}
	}
	for i, ev := range evals {
		resp.Runs[i] = filtered(ev.run, ev.events, filter)
	}
	writeJSON(w, http.StatusCreated, resp)
}

// evaluation is a recorded run with the timeline it was built from.
type evaluation struct {
	run    generic.Run
	events []generic.ContractEvent
}

// evaluateStored loads the requested contracts and everything they
// reference, runs them as one portfolio and records a run for each
// requested contract.
func (h *Handler) evaluateStored(ctx context.Context, ids []generic.ContractID, analysis []time.Time) ([]evaluation, [][]generic.ContractID, error) {
	contracts, err := h.loadContracts(ctx, ids)
	if err != nil {
		return nil, nil, err
	}
	rf, err := riskfactor.Load(ctx, h.Store)
	if err != nil {
		return nil, nil, err
	}
	result, err := h.Portfolio.Evaluate(ctx, contracts, analysis, rf)
	if err != nil {
		return nil, nil, err
	}

	byID := make(map[generic.ContractID]*generic.Terms, len(contracts))
	for _, terms := range contracts {
		byID[terms.ContractID()] = terms
	}
	now := h.now()
	out := make([]evaluation, 0, len(ids))
	for _, id := range ids {
		tag, _ := byID[id].ContractType()
		events := result.Events[id]
		run := generic.NewRun(id, tag, analysis, events, now)
		if err := h.Store.SaveRun(ctx, run); err != nil {
			return nil, nil, err
		}
		h.Logger.Info("run recorded", "run", run.ID, "contract", id, "events", len(events))
		out = append(out, evaluation{run: run, events: events})
	}
	return out, result.Levels, nil
}

// loadContracts reads the requested contracts and, transitively, the
// contracts they reference by ID. A missing requested contract is not
// found; a missing referenced contract is left for the dependency graph
// to report.
func (h *Handler) loadContracts(ctx context.Context, ids []generic.ContractID) ([]*generic.Terms, error) {
	var out []*generic.Terms
	seen := make(map[generic.ContractID]bool)
	queue := append([]generic.ContractID(nil), ids...)
	requested := len(ids)

	for n := 0; len(queue) > 0; n++ {
		id := queue[0]
		queue = queue[1:]
		if seen[id] {
			continue
		}
		seen[id] = true

		rec, err := h.Store.GetContract(ctx, id)
		if err != nil {
			if n >= requested && errors.Is(err, generic.ErrContractNotFound) {
				continue
			}
			return nil, err
		}
		terms, err := h.Terms.ParseJSON(rec.Terms)
		if err != nil {
			return nil, fmt.Errorf("contract %s: %w", id, err)
		}
		out = append(out, terms)
		deps, err := referencedIDs(terms)
		if err != nil {
			return nil, fmt.Errorf("contract %s: %w", id, err)
		}
		queue = append(queue, deps...)
	}
	return out, nil
}

func referencedIDs(terms *generic.Terms) ([]generic.ContractID, error) {
	refs, err := terms.References()
	if err != nil {
		return nil, err
	}
	var ids []generic.ContractID
	for _, ref := range refs {
		if ref.ContractID != "" {
			ids = append(ids, ref.ContractID)
		}
	}
	return ids, nil
}

// EvaluateInline evaluates terms sent in the request. Inline observations
// and events are layered over the stored risk factors. Nothing is
// recorded.
// POST /api/evaluate
func (h *Handler) EvaluateInline(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req InlineEvaluateRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if len(req.Terms) == 0 {
		writeError(w, http.StatusBadRequest, "terms is required", nil)
		return
	}
	analysis, filter, err := parseEvaluation(req.AnalysisDates, req.Filter)
	if err != nil {
		h.fail(w, "Invalid evaluation request", err)
		return
	}
	terms, err := h.Terms.ParseJSON(req.Terms)
	if err != nil {
		h.fail(w, "Invalid contract terms", err)
		return
	}
	observations, err := parseObservations(req.Observations)
	if err != nil {
		h.fail(w, "Invalid observations", err)
		return
	}
	events, err := parseContingentEvents(req.ContingentEvents)
	if err != nil {
		h.fail(w, "Invalid contingent events", err)
		return
	}

	rf, err := riskfactor.Load(ctx, h.Store)
	if err != nil {
		h.fail(w, "Failed to load risk factors", err)
		return
	}
	rf.AddObservations(observations)
	if err := rf.AddEvents(events); err != nil {
		h.fail(w, "Invalid contingent events", err)
		return
	}

	linked, err := h.evaluateReferenced(ctx, terms, analysis, rf)
	if err != nil {
		h.fail(w, "Evaluation failed", err)
		return
	}
	timeline, err := h.Engine.EvaluateLinked(analysis, terms, rf, linked)
	if err != nil {
		h.fail(w, "Evaluation failed", err)
		return
	}

	tag, _ := terms.ContractType()
	run := generic.NewRun(terms.ContractID(), tag, analysis, timeline, h.now())
	run.ID = ""
	writeJSON(w, http.StatusOK, filtered(run, timeline, filter))
}

// evaluateReferenced evaluates the stored contracts inline terms point to.
func (h *Handler) evaluateReferenced(ctx context.Context, terms *generic.Terms, analysis []time.Time, rf generic.RiskFactorObserver) (map[generic.ContractID][]generic.ContractEvent, error) {
	ids, err := referencedIDs(terms)
	if err != nil || len(ids) == 0 {
		return nil, err
	}
	contracts, err := h.loadContracts(ctx, ids)
	if err != nil {
		if errors.Is(err, generic.ErrContractNotFound) {
			return nil, fmt.Errorf("%v: %w", err, generic.ErrMissingDependency)
		}
		return nil, err
	}
	result, err := h.Portfolio.Evaluate(ctx, contracts, analysis, rf)
	if err != nil {
		return nil, err
	}
	return result.Events, nil
}

// GetRun returns a recorded run.
// GET /api/runs/{id}
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.Store.GetRun(r.Context(), generic.RunID(chi.URLParam(r, "id")))
	if err != nil {
		h.fail(w, "Failed to get run", err)
		return
	}
	writeJSON(w, http.StatusOK, toRunDTO(run))
}

// ListContractTypes returns the supported contract types.
// GET /api/contract-types
func (h *Handler) ListContractTypes(w http.ResponseWriter, r *http.Request) {
	types := instruments.AllContractTypes()
	dtos := make([]ContractTypeDTO, len(types))
	for i, ct := range types {
		dtos[i] = ContractTypeDTO{Code: ct.String(), Description: ct.Description()}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// RISK FACTOR ENDPOINTS
// =============================================================================

// AddObservations stores market observations. A batch is stored whole or
// not at all.
// POST /api/observations
func (h *Handler) AddObservations(w http.ResponseWriter, r *http.Request) {
	var req ObservationsRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	obs, err := parseObservations(req.Observations)
	if err != nil {
		h.fail(w, "Invalid observations", err)
		return
	}
	if err := h.Store.AddObservations(r.Context(), obs); err != nil {
		h.fail(w, "Failed to add observations", err)
		return
	}
	writeJSON(w, http.StatusCreated, CountResponse{Count: len(obs)})
}

// AddContingentEvents stores unscheduled events such as prepayments and
// credit events.
// POST /api/contingent-events
func (h *Handler) AddContingentEvents(w http.ResponseWriter, r *http.Request) {
	var req ContingentEventsRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	events, err := parseContingentEvents(req.Events)
	if err != nil {
		h.fail(w, "Invalid contingent events", err)
		return
	}
	if err := h.Store.AddContingentEvents(r.Context(), events); err != nil {
		h.fail(w, "Failed to add contingent events", err)
		return
	}
	writeJSON(w, http.StatusCreated, CountResponse{Count: len(events)})
}

// =============================================================================
// CALENDAR ENDPOINTS
// =============================================================================

// ListCalendars returns the calendar codes terms may name.
// GET /api/calendars
func (h *Handler) ListCalendars(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, CalendarsResponse{Calendars: h.Calendars.Names()})
}

// AddHoliday stores a holiday and reloads the calendars, so the next
// evaluation already skips it.
// POST /api/calendars/{name}/holidays
func (h *Handler) AddHoliday(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := chi.URLParam(r, "name")

	var req HolidayRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	date, err := factory.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid holiday date", err)
		return
	}
	if err := h.Store.SaveHoliday(ctx, name, date, req.Name); err != nil {
		h.fail(w, "Failed to save holiday", err)
		return
	}
	if err := h.Store.LoadCalendars(ctx, h.Calendars); err != nil {
		h.fail(w, "Failed to reload calendars", err)
		return
	}
	writeJSON(w, http.StatusCreated, CalendarsResponse{Calendars: h.Calendars.Names()})
}

// =============================================================================
// REQUEST PARSING
// =============================================================================

func decodeJSON(w http.ResponseWriter, r *http.Request, v any, optional bool) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	return nil
}

func parseEvaluation(dates []string, dto *FilterDTO) ([]time.Time, generic.Filter, error) {
	analysis := make([]time.Time, 0, len(dates))
	for _, s := range dates {
		t, err := factory.ParseDate(s)
		if err != nil {
			return nil, generic.Filter{}, fmt.Errorf("%w: analysis date: %v", errBadRequest, err)
		}
		analysis = append(analysis, t)
	}
	filter, err := parseFilter(dto)
	return analysis, filter, err
}

func parseFilter(dto *FilterDTO) (generic.Filter, error) {
	if dto == nil {
		return generic.Filter{}, nil
	}
	if dto.Limit < 0 {
		return generic.Filter{}, fmt.Errorf("%w: negative limit", errBadRequest)
	}
	f := generic.Filter{
		NonContingentPrefix: dto.NonContingentPrefix,
		PayoffOnly:          dto.PayoffOnly,
		Limit:               dto.Limit,
	}
	for _, s := range dto.Types {
		t, err := generic.ParseEventType(s)
		if err != nil {
			return generic.Filter{}, fmt.Errorf("%w: %v", errBadRequest, err)
		}
		f.Types = append(f.Types, t)
	}
	for _, field := range []struct {
		raw  string
		dest *time.Time
	}{
		{dto.WindowStart, &f.Window.Start},
		{dto.WindowEnd, &f.Window.End},
		{dto.From, &f.From},
	} {
		if field.raw == "" {
			continue
		}
		t, err := factory.ParseDate(field.raw)
		if err != nil {
			return generic.Filter{}, fmt.Errorf("%w: filter: %v", errBadRequest, err)
		}
		*field.dest = t
	}
	if err := f.Window.Validate(); err != nil {
		return generic.Filter{}, err
	}
	return f, nil
}

func parseObservations(dtos []ObservationDTO) ([]riskfactor.Observation, error) {
	out := make([]riskfactor.Observation, 0, len(dtos))
	for i, dto := range dtos {
		if dto.Series == "" {
			return nil, fmt.Errorf("%w: observation %d: series is required", errBadRequest, i)
		}
		at, err := factory.ParseDate(dto.At)
		if err != nil {
			return nil, fmt.Errorf("%w: observation %d: %v", errBadRequest, i, err)
		}
		v, err := factory.ParseDecimal(dto.Value)
		if err != nil {
			return nil, fmt.Errorf("%w: observation %d: %v", errBadRequest, i, err)
		}
		out = append(out, riskfactor.Observation{Series: dto.Series, At: at, Value: v})
	}
	return out, nil
}

func parseContingentEvents(dtos []ContingentEventDTO) ([]riskfactor.ContingentEvent, error) {
	out := make([]riskfactor.ContingentEvent, 0, len(dtos))
	for i, dto := range dtos {
		if dto.ContractID == "" {
			return nil, fmt.Errorf("%w: event %d: contract_id is required", errBadRequest, i)
		}
		at, err := factory.ParseDate(dto.At)
		if err != nil {
			return nil, fmt.Errorf("%w: event %d: %v", errBadRequest, i, err)
		}
		typ, err := generic.ParseEventType(dto.Type)
		if err != nil {
			return nil, fmt.Errorf("%w: event %d: %v", errBadRequest, i, err)
		}
		out = append(out, riskfactor.ContingentEvent{
			ContractID: generic.ContractID(dto.ContractID),
			At:         at,
			Type:       typ,
			Currency:   dto.Currency,
		})
	}
	return out, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func toContractDTO(rec sqlite.ContractRecord) ContractDTO {
	return ContractDTO{
		ID:           string(rec.ID),
		ContractType: rec.ContractType,
		Terms:        rec.Terms,
		CreatedAt:    rec.CreatedAt,
		UpdatedAt:    rec.UpdatedAt,
	}
}

// filtered converts a run for the response, keeping only the events that
// pass the filter.
func filtered(run generic.Run, events []generic.ContractEvent, f generic.Filter) RunDTO {
	dto := toRunDTO(run)
	dto.Events = generic.NewEventRecords(f.Apply(events))
	return dto
}

// statusFor maps engine and store errors to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case generic.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, generic.ErrDuplicateRun):
		return http.StatusConflict
	case generic.IsClientError(err):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// fail writes err with the status it maps to. Internal errors are logged.
func (h *Handler) fail(w http.ResponseWriter, message string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.Logger.Error(message, "error", err)
	}
	writeError(w, status, message, err)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
