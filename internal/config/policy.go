package config

import (
    "log"
    "strings"
    "time"
)

// PeakWindow is a half-open calendar window [From, To) during which
// the stricter refund thresholds apply, e.g. the winter high season or
// a festival period.
type PeakWindow struct {
    From time.Time
    To   time.Time
}

// SettlementConfig groups the knobs of the payment settlement core:
// the gateway endpoint, the payment window after which unpaid PENDING
// bookings are failed, and the peak calendar for the refund policy.
// These are passed explicitly into the policy engine and the sweep so
// neither reads ambient state.
type SettlementConfig struct {
    GatewayBaseURL string        // base URL of the payment gateway API
    GatewayAPIKey  string        // bearer token for gateway calls
    GatewayTimeout time.Duration // per-request timeout for status fetches
    WebhookSecret  string        // shared secret expected on webhook deliveries
    PaymentWindow  time.Duration // how long a PENDING booking may await payment
    SweepInterval  time.Duration // cadence of the expiry sweep
    PeakWindows    []PeakWindow  // peak calendar for the refund policy
}

// LoadSettlementConfig reads settlement configuration.  The gateway
// URL and webhook secret are required; durations fall back to sane
// defaults.  PEAK_WINDOWS is a comma-separated list of
// "YYYY-MM-DD:YYYY-MM-DD" pairs (half-open, end date exclusive).
func LoadSettlementConfig() SettlementConfig {
    return SettlementConfig{
        GatewayBaseURL: must("PAYMENT_GATEWAY_URL"),
        GatewayAPIKey:  must("PAYMENT_GATEWAY_API_KEY"),
        GatewayTimeout: parseDur(getenv("PAYMENT_GATEWAY_TIMEOUT", "5s")),
        WebhookSecret:  must("PAYMENT_WEBHOOK_SECRET"),
        PaymentWindow:  parseDur(getenv("PAYMENT_WINDOW", "30m")),
        SweepInterval:  parseDur(getenv("PAYMENT_SWEEP_INTERVAL", "1m")),
        PeakWindows:    parsePeakWindows(getenv("PEAK_WINDOWS", "")),
    }
}

// parsePeakWindows parses the PEAK_WINDOWS format.  Malformed entries
// are fatal: a silently dropped peak window would quietly loosen the
// refund policy.
func parsePeakWindows(s string) []PeakWindow {
    s = strings.TrimSpace(s)
    if s == "" {
        return nil
    }
    var out []PeakWindow
    for _, part := range strings.Split(s, ",") {
        part = strings.TrimSpace(part)
        if part == "" {
            continue
        }
        bounds := strings.Split(part, ":")
        if len(bounds) != 2 {
            log.Fatalf("invalid PEAK_WINDOWS entry: %q", part)
        }
        from, err := time.Parse("2006-01-02", strings.TrimSpace(bounds[0]))
        if err != nil {
            log.Fatalf("invalid PEAK_WINDOWS start in %q: %v", part, err)
        }
        to, err := time.Parse("2006-01-02", strings.TrimSpace(bounds[1]))
        if err != nil {
            log.Fatalf("invalid PEAK_WINDOWS end in %q: %v", part, err)
        }
        if !from.Before(to) {
            log.Fatalf("invalid PEAK_WINDOWS range %q: start must precede end", part)
        }
        out = append(out, PeakWindow{From: from.UTC(), To: to.UTC()})
    }
    return out
}
