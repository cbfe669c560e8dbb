package featureflags

import "testing"

func TestEnabled(t *testing.T) {
	t.Setenv("FLAG_SESSION_DEBUG", "Yes")
	if !Enabled(SessionDebug) {
		t.Fatalf("expected session_debug enabled")
	}
	t.Setenv("FLAG_SESSION_DEBUG", "nope")
	if Enabled(SessionDebug) {
		t.Fatalf("expected session_debug disabled")
	}
}

func TestEnabledOrDefault(t *testing.T) {
	t.Setenv("FLAG_ORDER_FEED", "")
	if !EnabledOr(OrderFeed, true) {
		t.Fatalf("expected default to apply for unset flag")
	}
	t.Setenv("FLAG_ORDER_FEED", "off")
	if EnabledOr(OrderFeed, true) {
		t.Fatalf("expected explicit off to win")
	}
}
