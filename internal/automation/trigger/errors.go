package trigger

import "errors"

// Domain-specific errors for trigger binding.
var (
	// ErrInvalidSchedule is returned when a cron expression or timezone
	// cannot be parsed.
	ErrInvalidSchedule = errors.New("trigger: invalid schedule")

	// ErrInvalidWebhook is returned when port or path is missing or malformed.
	ErrInvalidWebhook = errors.New("trigger: invalid webhook")

	// ErrWebhookPathInUse is returned when another automation already
	// serves the same port and path.
	ErrWebhookPathInUse = errors.New("trigger: webhook path already in use")

	// ErrInvalidWatch is returned when a file_change path is missing or the
	// ignore pattern does not compile.
	ErrInvalidWatch = errors.New("trigger: invalid file watch")

	// ErrNoChecker is returned when an email or calendar trigger is bound
	// without a checker.
	ErrNoChecker = errors.New("trigger: no checker configured")

	// ErrNoFeedURL is returned by FeedChecker when the spec has no feed_url.
	ErrNoFeedURL = errors.New("trigger: feed_url is required")

	// ErrNoSampler is returned when a system trigger is bound without a sampler.
	ErrNoSampler = errors.New("trigger: no system sampler configured")

	// ErrNoSubscriber is returned when an mqtt trigger is bound without a
	// broker connection.
	ErrNoSubscriber = errors.New("trigger: mqtt is not enabled")

	// ErrInvalidTopic is returned when an mqtt trigger has no topic.
	ErrInvalidTopic = errors.New("trigger: topic is required")
)
