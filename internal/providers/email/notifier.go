package email

import (
	"context"
	"fmt"

	identitydomain "github.com/dealerdesk/platform/internal/identity/domain"
)

// StatusNotifier renders account status notices and hands them to the
// underlying provider.
type StatusNotifier struct {
	provider Provider
	appName  string
}

func NewStatusNotifier(provider Provider, appName string) *StatusNotifier {
	return &StatusNotifier{provider: provider, appName: appName}
}

func (n *StatusNotifier) SendStatusChangeNotice(ctx context.Context, to, status, reason string) error {
	subject := fmt.Sprintf("Your %s account status changed", n.appName)
	var line string
	switch status {
	case identitydomain.UserStatusActive:
		line = "Your account has been reactivated."
	case identitydomain.UserStatusInactive:
		line = "Your account has been deactivated."
	case identitydomain.UserStatusRemoved:
		subject = fmt.Sprintf("Your %s account has been removed", n.appName)
		line = "Your account has been removed from your company."
	default:
		line = fmt.Sprintf("Your account status is now %q.", status)
	}

	body := fmt.Sprintf("<p>%s</p>", line)
	if reason != "" {
		body += fmt.Sprintf("<p>Reason: %s</p>", reason)
	}
	return n.provider.Send(ctx, []string{to}, subject, body)
}
