package moderation

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/iamwavecut/ngmod/internal/db"
	"github.com/iamwavecut/ngmod/internal/observability"
)

type (
	CoordinatorConfig struct {
		// PlatformTimeout bounds every single platform call.
		PlatformTimeout time.Duration
		// FloodMuteDuration is how long flooders stay muted; zero mutes until lifted by hand.
		FloodMuteDuration time.Duration
	}

	// Coordinator runs inbound events through the filter, flood and slowmode checks and
	// carries out the resulting actions on the platform.
	Coordinator struct {
		settings *Settings
		ledger   *Ledger
		flood    *FloodDetector
		slowmode *SlowmodeTracker
		filter   *FilterEngine
		members  *MemberDirectory
		platform Platform
		cfg      CoordinatorConfig
		tracer   oteltrace.Tracer
	}
)

func NewCoordinator(
	settings *Settings,
	ledger *Ledger,
	flood *FloodDetector,
	slowmode *SlowmodeTracker,
	filter *FilterEngine,
	members *MemberDirectory,
	platform Platform,
	cfg CoordinatorConfig,
) *Coordinator {
	if cfg.PlatformTimeout <= 0 {
		cfg.PlatformTimeout = 10 * time.Second
	}
	return &Coordinator{
		settings: settings,
		ledger:   ledger,
		flood:    flood,
		slowmode: slowmode,
		filter:   filter,
		members:  members,
		platform: platform,
		cfg:      cfg,
		tracer:   otel.Tracer("github.com/iamwavecut/ngmod/internal/moderation"),
	}
}

func (c *Coordinator) Settings() *Settings       { return c.settings }
func (c *Coordinator) Ledger() *Ledger           { return c.ledger }
func (c *Coordinator) Filter() *FilterEngine     { return c.filter }
func (c *Coordinator) Flood() *FloodDetector     { return c.flood }
func (c *Coordinator) Members() *MemberDirectory { return c.members }

// OnMessage evaluates a group message. The returned action is ActionNone when the
// message needs no intervention.
func (c *Coordinator) OnMessage(ctx context.Context, ev MessageEvent) (Action, error) {
	ctx, span := c.tracer.Start(ctx, "OnMessage", oteltrace.WithAttributes(
		attribute.Int64("chat_id", ev.ChatID),
		attribute.Int64("user_id", ev.UserID),
	))
	defer span.End()
	defer observability.StartEvent("message")()

	entry := c.getLogEntry().WithFields(log.Fields{
		"method":  "OnMessage",
		"chat_id": ev.ChatID,
		"user_id": ev.UserID,
	})

	status, err := c.members.Status(ctx, ev.ChatID, ev.UserID)
	if err != nil {
		entry.WithField("error", err.Error()).Warn("cant resolve member status, treating as member")
		status = MemberStatusMember
	}
	if status.Exempt() {
		c.flood.Forget(ev.ChatID, ev.UserID)
		c.slowmode.Forget(ev.ChatID, ev.UserID)
		return Action{}, nil
	}

	settings, err := c.settings.GetOrCreate(ctx, ev.ChatID)
	if err != nil {
		return Action{}, fmt.Errorf("get settings: %w", err)
	}

	trigger, err := c.filter.Match(ctx, ev.ChatID, ev.Text)
	if err != nil {
		entry.WithField("error", err.Error()).Error("filter match failed")
	}
	if trigger != nil {
		switch trigger.Kind {
		case db.TriggerKindBlacklist:
			return c.deleteMessage(ctx, ev, ReasonBlacklist, trigger), nil
		case db.TriggerKindWarn:
			action, err := c.warn(ctx, settings, ev.ChatID, ev.UserID, WarnReason(trigger), 0)
			action.Trigger = trigger
			return action, err
		}
	}

	window := time.Duration(settings.AntifloodWindow) * time.Second
	if c.flood.RecordAndCheck(ev.ChatID, ev.UserID, ev.Date, settings.AntifloodLimit, window) {
		observability.SetTracked("flood", c.flood.Size())
		return c.muteFlooder(ctx, ev)
	}

	interval := time.Duration(settings.SlowmodeSeconds) * time.Second
	if !c.slowmode.Allow(ev.ChatID, ev.UserID, ev.Date, interval) {
		return c.deleteMessage(ctx, ev, ReasonSlowmode, nil), nil
	}

	return Action{}, nil
}

// OnMembershipChange keeps cached member state in line with the chat roster. Users
// who leave, are removed or become administrators lose their activity history.
func (c *Coordinator) OnMembershipChange(ctx context.Context, ev MembershipEvent) (Action, error) {
	_, span := c.tracer.Start(ctx, "OnMembershipChange", oteltrace.WithAttributes(
		attribute.Int64("chat_id", ev.ChatID),
		attribute.Int64("user_id", ev.UserID),
		attribute.String("new_status", string(ev.NewStatus)),
	))
	defer span.End()
	defer observability.StartEvent("membership")()

	if ev.NewStatus == "" {
		c.members.Invalidate(ev.ChatID, ev.UserID)
	} else {
		c.members.Set(ev.ChatID, ev.UserID, ev.NewStatus)
	}

	if ev.Left() || ev.NewStatus.Exempt() {
		c.flood.Forget(ev.ChatID, ev.UserID)
		c.slowmode.Forget(ev.ChatID, ev.UserID)
		c.getLogEntry().WithFields(log.Fields{
			"chat_id":    ev.ChatID,
			"user_id":    ev.UserID,
			"old_status": ev.OldStatus,
			"new_status": ev.NewStatus,
		}).Trace("activity state cleared")
	}
	return Action{}, nil
}

// Warn issues a warning on behalf of issuedBy and escalates when the chat's limit is reached.
func (c *Coordinator) Warn(ctx context.Context, chatID, userID int64, reason string, issuedBy int64) (Action, error) {
	ctx, span := c.tracer.Start(ctx, "Warn", oteltrace.WithAttributes(
		attribute.Int64("chat_id", chatID),
		attribute.Int64("user_id", userID),
	))
	defer span.End()

	status, err := c.members.Status(ctx, chatID, userID)
	if err != nil {
		return Action{}, fmt.Errorf("get member status: %w", err)
	}
	if status.Exempt() {
		return Action{}, ErrProtectedMember
	}

	settings, err := c.settings.GetOrCreate(ctx, chatID)
	if err != nil {
		return Action{}, fmt.Errorf("get settings: %w", err)
	}
	return c.warn(ctx, settings, chatID, userID, reason, issuedBy)
}

func (c *Coordinator) warn(ctx context.Context, settings *db.ChatSettings, chatID, userID int64, reason string, issuedBy int64) (Action, error) {
	res, err := c.ledger.AddWithLimit(ctx, &db.Warning{
		ChatID:   chatID,
		UserID:   userID,
		Reason:   reason,
		IssuedBy: issuedBy,
	}, settings.WarnLimit)
	if err != nil {
		return Action{}, err
	}

	action := Action{
		Kind:    ActionWarned,
		ChatID:  chatID,
		UserID:  userID,
		Reason:  reason,
		Count:   res.Count,
		Limit:   settings.WarnLimit,
		Warning: res.Warning,
	}
	if !res.Escalated {
		c.record(action)
		return action, nil
	}

	action.Kind = ActionEscalated
	action.Escalation = settings.WarnAction
	if err := c.escalate(ctx, chatID, userID, settings.WarnAction); err != nil {
		action.Err = err
		observability.RecordLostEscalation()
		c.getLogEntry().WithFields(log.Fields{
			"chat_id":    chatID,
			"user_id":    userID,
			"escalation": settings.WarnAction,
			"error":      err.Error(),
		}).Error("escalation failed, warnings already reset")
	} else {
		c.flood.Forget(chatID, userID)
		c.slowmode.Forget(chatID, userID)
		c.members.Invalidate(chatID, userID)
	}
	c.record(action)
	return action, nil
}

func (c *Coordinator) escalate(ctx context.Context, chatID, userID int64, kind db.WarnAction) error {
	if err := c.call(ctx, func(ctx context.Context) error {
		return c.platform.BanMember(ctx, chatID, userID)
	}); err != nil {
		return fmt.Errorf("ban member: %w", err)
	}
	if kind != db.WarnActionKick {
		return nil
	}
	if err := c.call(ctx, func(ctx context.Context) error {
		return c.platform.UnbanMember(ctx, chatID, userID)
	}); err != nil {
		return fmt.Errorf("unban kicked member: %w", err)
	}
	return nil
}

func (c *Coordinator) muteFlooder(ctx context.Context, ev MessageEvent) (Action, error) {
	var until time.Time
	if c.cfg.FloodMuteDuration > 0 {
		until = time.Now().Add(c.cfg.FloodMuteDuration)
	}
	err := c.call(ctx, func(ctx context.Context) error {
		return c.platform.RestrictMember(ctx, ev.ChatID, ev.UserID, until)
	})
	switch {
	case err == nil:
		action := Action{Kind: ActionMuted, ChatID: ev.ChatID, UserID: ev.UserID, Reason: ReasonFlood}
		c.members.Set(ev.ChatID, ev.UserID, MemberStatusRestricted)
		c.record(action)
		return action, nil
	case errors.Is(err, ErrNoPrivileges):
		disabled := 0
		if _, updErr := c.settings.Update(ctx, ev.ChatID, db.SettingsPatch{AntifloodLimit: &disabled}); updErr != nil {
			return Action{}, fmt.Errorf("disable antiflood: %w", updErr)
		}
		c.getLogEntry().WithField("chat_id", ev.ChatID).Warn("no restrict rights, antiflood auto-disabled")
		action := Action{Kind: ActionFloodAutoDisabled, ChatID: ev.ChatID, UserID: ev.UserID, Reason: ReasonFlood}
		c.record(action)
		return action, nil
	case errors.Is(err, ErrProtectedMember):
		c.members.Invalidate(ev.ChatID, ev.UserID)
		c.flood.Forget(ev.ChatID, ev.UserID)
		c.getLogEntry().WithFields(log.Fields{
			"chat_id": ev.ChatID,
			"user_id": ev.UserID,
		}).Debug("flooder turned out to be protected")
		return Action{}, nil
	default:
		return Action{}, fmt.Errorf("restrict flooder: %w", err)
	}
}

func (c *Coordinator) deleteMessage(ctx context.Context, ev MessageEvent, reason string, trigger *db.FilterTrigger) Action {
	action := Action{
		Kind:    ActionDeleted,
		ChatID:  ev.ChatID,
		UserID:  ev.UserID,
		Reason:  reason,
		Trigger: trigger,
	}
	action.Err = c.call(ctx, func(ctx context.Context) error {
		return c.platform.DeleteMessage(ctx, ev.ChatID, ev.MessageID)
	})
	if action.Err != nil {
		c.getLogEntry().WithFields(log.Fields{
			"chat_id": ev.ChatID,
			"reason":  reason,
			"error":   action.Err.Error(),
		}).Warn("cant delete message")
	}
	c.record(action)
	return action
}

func (c *Coordinator) call(ctx context.Context, fn func(ctx context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, c.cfg.PlatformTimeout)
	defer cancel()
	return fn(callCtx)
}

func (c *Coordinator) record(action Action) {
	observability.RecordAction(action.Kind.String())
	fields := []zap.Field{
		zap.String("reason", action.Reason),
		zap.Int("count", action.Count),
		zap.Int("limit", action.Limit),
	}
	if action.Escalation != "" {
		fields = append(fields, zap.String("escalation", string(action.Escalation)))
	}
	if action.Trigger != nil {
		fields = append(fields, zap.String("keyword", action.Trigger.Keyword))
	}
	if action.Err != nil {
		fields = append(fields, zap.Error(action.Err))
	}
	observability.Audit(action.Kind.String(), action.ChatID, action.UserID, fields...)
}

func (c *Coordinator) getLogEntry() *log.Entry {
	return log.WithField("object", "Coordinator")
}
