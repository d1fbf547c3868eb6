package engine

import (
	"context"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/tartampluch/go-rota/internal/config"
	"github.com/tartampluch/go-rota/internal/identity"
	"github.com/tartampluch/go-rota/internal/schedule"
	"github.com/tartampluch/go-rota/internal/shift"
)

// FirstSuccess runs attempts in order and returns the first value accepted
// by ok together with its index. A failed value accepted by stop ends the
// cascade early. When nothing succeeds the last value observed is returned
// with index -1. A nil stop never stops.
func FirstSuccess[T any](ctx context.Context, attempts []func(context.Context) T, ok, stop func(T) bool) (T, int) {
	var last T
	for i, attempt := range attempts {
		last = attempt(ctx)
		if ok(last) {
			return last, i
		}
		if stop != nil && stop(last) {
			break
		}
	}
	return last, -1
}

// MutationResult is the structured outcome of a send or update.
type MutationResult struct {
	OK bool
	// Error is empty on success, the stopping backend code when the cascade
	// stopped early, and config.ErrCodeAllVariantsFailed otherwise.
	Error string
	// LastError is the last error code reported by the backend, if any.
	LastError string
	// Used is the winning request, without secrets.
	Used     string
	Data     map[string]any
	Attempts int
}

// SendRequest asks the backend to message an employee their shift.
type SendRequest struct {
	TargetEmail string
	Action      string // config.ActionSendToday or config.ActionSendTomorrow
	Actor       string
}

// UpdateRequest rewrites one day of an employee's current-week shift.
type UpdateRequest struct {
	TargetEmail string
	Day         string
	NewShift    string
	Actor       string
}

// candidate is one request of a mutation cascade.
type candidate struct {
	action string
	params url.Values
	// aliasSpecific marks candidates addressing a row by alias, whose
	// row-not-found answer is authoritative.
	aliasSpecific bool
}

// SendShift messages an employee their shift for today or tomorrow. Candidates
// address the row by target email, resolved alias, every alias variant and
// finally plain email, sequentially; the first success wins. Mutations are
// never cached. The only error is ErrCancelled before the first candidate,
// or ErrUnknownAction.
func (c *Client) SendShift(ctx context.Context, req SendRequest) (MutationResult, error) {
	if req.Action != config.ActionSendToday && req.Action != config.ActionSendTomorrow {
		return MutationResult{}, ErrUnknownAction
	}
	if err := ctx.Err(); err != nil {
		return MutationResult{}, cancelled(err)
	}

	extra := url.Values{}
	if phone, ok := c.resolver.ResolvePhone(ctx, req.TargetEmail); ok {
		extra.Set(config.ParamPhone, phone)
	}
	if key, ok := c.resolver.ResolveAPIKey(ctx, req.TargetEmail); ok {
		extra.Set(config.ParamAPIKey, key)
	}
	if req.Actor != "" {
		extra.Set(config.ParamActor, req.Actor)
	}

	cands := []candidate{{action: req.Action, params: with(extra, config.ParamTarget, req.TargetEmail)}}
	for _, a := range c.aliasCandidates(ctx, req.TargetEmail) {
		cands = append(cands, candidate{action: req.Action, params: with(extra, config.ParamAlias, a), aliasSpecific: true})
	}
	cands = append(cands, candidate{action: req.Action, params: with(extra, config.ParamEmail, req.TargetEmail)})

	return c.runCascade(ctx, req.TargetEmail, cands), nil
}

// UpdateShift rewrites one day of the target's current week. The day is
// normalized with shift.DayFix and the shift text has its whitespace
// collapsed. Candidates: updateShift by target, then for each alias the
// update actions in order.
func (c *Client) UpdateShift(ctx context.Context, req UpdateRequest) (MutationResult, error) {
	if strings.TrimSpace(req.Actor) == "" {
		return MutationResult{}, ErrActorRequired
	}
	if err := ctx.Err(); err != nil {
		return MutationResult{}, cancelled(err)
	}

	extra := url.Values{}
	extra.Set(config.ParamActor, req.Actor)
	extra.Set(config.ParamDay, shift.DayFix(req.Day))
	extra.Set(config.ParamShift, strings.Join(strings.Fields(req.NewShift), " "))

	cands := []candidate{{action: config.ActionUpdateShift, params: with(extra, config.ParamTarget, req.TargetEmail)}}
	for _, a := range c.aliasCandidates(ctx, req.TargetEmail) {
		for _, action := range config.UpdateAliasActions {
			cands = append(cands, candidate{action: action, params: with(extra, config.ParamAlias, a), aliasSpecific: true})
		}
	}

	return c.runCascade(ctx, req.TargetEmail, cands), nil
}

// aliasCandidates is the resolved alias followed by every other known spelling.
func (c *Client) aliasCandidates(ctx context.Context, email string) []string {
	var out []string
	if res, err := c.resolver.ResolveAlias(ctx, identity.Query{Email: email}); err == nil {
		out = append(out, res.Alias)
	}
	seen := map[string]bool{}
	for _, a := range out {
		seen[a] = true
	}
	for _, a := range c.resolver.Candidates(ctx, email) {
		if !seen[a] {
			seen[a] = true
			out = append(out, a)
		}
	}
	return out
}

// runCascade tries cands in order. Candidates already started always run to
// completion: cancellation is only honoured before the cascade begins.
func (c *Client) runCascade(ctx context.Context, target string, cands []candidate) MutationResult {
	log := c.log.With(config.LogKeyOpID, uuid.NewString(), config.LogKeyIdentity, target)
	// Once started, candidates are not cancellable.
	runCtx := context.WithoutCancel(ctx)

	var lastBackendErr string
	attempts := make([]func(context.Context) MutationResult, len(cands))
	for i, cand := range cands {
		attempts[i] = func(ctx context.Context) MutationResult {
			log.Debug(config.MsgCandidateTry,
				config.LogKeyAttempt, i+1,
				config.LogKeyAction, cand.action,
				config.LogKeyKey, cacheKey(cand.action, cand.params),
			)
			res := c.mutate(ctx, cand)
			res.Attempts = i + 1
			if !res.OK {
				if res.Error != "" {
					lastBackendErr = res.Error
				}
				log.Debug(config.MsgCandidateFail, config.LogKeyAttempt, i+1, config.LogKeyError, res.Error)
			}
			return res
		}
	}

	stopped := false
	res, idx := FirstSuccess(runCtx, attempts,
		func(r MutationResult) bool { return r.OK },
		func(r MutationResult) bool {
			i := r.Attempts - 1
			stopped = cands[i].aliasSpecific && r.Error == config.BackendErrRowNotFound
			return stopped
		},
	)

	switch {
	case idx >= 0:
		log.Info(config.MsgMutationOK, config.LogKeyAttempt, idx+1, config.LogKeyAction, cands[idx].action)
		return res
	case stopped:
		log.Warn(config.MsgMutationStopped, config.LogKeyAttempt, res.Attempts, config.LogKeyError, res.Error)
		res.LastError = res.Error
		return res
	default:
		log.Warn(config.MsgMutationFailed, config.LogKeyCount, len(cands), config.LogKeyError, lastBackendErr)
		return MutationResult{
			Error:     config.ErrCodeAllVariantsFailed,
			LastError: lastBackendErr,
			Attempts:  len(cands),
		}
	}
}

// mutate issues one uncached mutation request.
func (c *Client) mutate(ctx context.Context, cand candidate) MutationResult {
	raw, err := c.fetch(ctx, cand.action, cand.params, 0)
	if err != nil {
		c.log.Debug(config.MsgFetchFailed, config.LogKeyAction, cand.action, config.LogKeyError, err)
		return MutationResult{}
	}
	if ok, _ := raw["ok"].(bool); ok {
		return MutationResult{OK: true, Used: cacheKey(cand.action, cand.params), Data: raw}
	}
	return MutationResult{Error: schedule.Field(raw, "error"), Data: raw}
}

// with copies base and sets k to v.
func with(base url.Values, k, v string) url.Values {
	out := make(url.Values, len(base)+1)
	for key, vs := range base {
		out[key] = append([]string(nil), vs...)
	}
	out.Set(k, v)
	return out
}
