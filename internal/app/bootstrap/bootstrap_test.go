package bootstrap

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconfig "github.com/wolfman30/lead-intake/internal/config"
	"github.com/wolfman30/lead-intake/internal/files"
	"github.com/wolfman30/lead-intake/internal/intake"
	"github.com/wolfman30/lead-intake/internal/leads"
	"github.com/wolfman30/lead-intake/internal/notify"
	"github.com/wolfman30/lead-intake/internal/ratelimit"
	"github.com/wolfman30/lead-intake/pkg/logging"
)

var errNoAWS = errors.New("no aws in tests")

func failingAWS(context.Context) (aws.Config, error) { return aws.Config{}, errNoAWS }

func testConfig() *appconfig.Config {
	return &appconfig.Config{
		BrandName:           "Rebot",
		Timezone:            "UTC",
		RateLimitMax:        3,
		RateLimitWindow:     10 * time.Minute,
		RateLimitBackend:    "memory",
		LeadStore:           "memory",
		FileStore:           "none",
		EmailProvider:       "stub",
		WhatsAppProvider:    "meta",
		CollaboratorTimeout: time.Second,
		InternalEmail:       "ventas@rebot.cl",
	}
}

func TestBuildLeadStore(t *testing.T) {
	cfg := testConfig()
	store, closeFn, err := BuildLeadStore(context.Background(), cfg, failingAWS, nil)
	require.NoError(t, err)
	require.NotNil(t, closeFn)
	assert.IsType(t, &leads.MemoryStore{}, store)

	cfg.LeadStore = "dynamodb"
	_, _, err = BuildLeadStore(context.Background(), cfg, failingAWS, nil)
	assert.ErrorIs(t, err, errNoAWS)

	cfg.LeadStore = "postgres"
	_, _, err = BuildLeadStore(context.Background(), cfg, failingAWS, nil)
	assert.ErrorContains(t, err, "DATABASE_URL")

	cfg.LeadStore = "csv"
	_, _, err = BuildLeadStore(context.Background(), cfg, failingAWS, nil)
	assert.ErrorContains(t, err, `unknown lead store "csv"`)
}

func TestBuildFileStore_FallsBackToDisabled(t *testing.T) {
	cfg := testConfig()
	for _, backend := range []string{"none", "s3", "ftp"} {
		cfg.FileStore = backend
		cfg.S3Bucket = "leads-bucket"
		store := BuildFileStore(context.Background(), cfg, failingAWS, nil)
		assert.IsType(t, files.DisabledStore{}, store, backend)
	}
}

func TestBuildEmailSender(t *testing.T) {
	cfg := testConfig()
	assert.IsType(t, &notify.StubEmailSender{}, BuildEmailSender(context.Background(), cfg, failingAWS, nil))

	cfg.EmailProvider = "smtp"
	assert.Nil(t, BuildEmailSender(context.Background(), cfg, failingAWS, nil))

	cfg.SMTPHost = "smtp.example.cl"
	assert.IsType(t, &notify.SMTPSender{}, BuildEmailSender(context.Background(), cfg, failingAWS, nil))

	cfg.EmailProvider = "sendgrid"
	assert.Nil(t, BuildEmailSender(context.Background(), cfg, failingAWS, nil))

	cfg.EmailProvider = "ses"
	assert.Nil(t, BuildEmailSender(context.Background(), cfg, failingAWS, nil))
}

func TestBuildEventPublisher(t *testing.T) {
	cfg := testConfig()
	assert.Nil(t, BuildEventPublisher(context.Background(), cfg, failingAWS, nil))

	cfg.LeadEventsQueueURL = "https://sqs.us-east-1.amazonaws.com/123/leads"
	assert.Nil(t, BuildEventPublisher(context.Background(), cfg, failingAWS, nil))
}

func TestBuildRateGuard(t *testing.T) {
	cfg := testConfig()
	guard, closeFn := BuildRateGuard(context.Background(), cfg, nil)
	defer closeFn()
	assert.IsType(t, &ratelimit.MemoryGuard{}, guard)

	mr := miniredis.RunT(t)
	cfg.RateLimitBackend = "redis"
	cfg.RedisAddr = mr.Addr()
	guard, closeRedis := BuildRateGuard(context.Background(), cfg, nil)
	defer closeRedis()
	assert.IsType(t, &ratelimit.RedisGuard{}, guard)

	cfg.RedisAddr = "127.0.0.1:1"
	guard, closeFallback := BuildRateGuard(context.Background(), cfg, nil)
	defer closeFallback()
	assert.IsType(t, &ratelimit.MemoryGuard{}, guard)
}

func TestBuildIntake_EndToEnd(t *testing.T) {
	cfg := testConfig()
	rt, err := BuildIntake(context.Background(), cfg, failingAWS, prometheus.NewRegistry(), nil)
	require.NoError(t, err)
	defer rt.Close()
	require.NotNil(t, rt.Handler)
	require.NotNil(t, rt.Metrics)

	res := rt.Service.Submit(context.Background(), intake.RawSubmission{
		Fields: map[string]any{
			intake.FieldName:        "Ana",
			intake.FieldEmail:       "ana@example.cl",
			intake.FieldChannel:     "email",
			intake.FieldDescription: "Necesito cotizar veinte piezas impresas",
			intake.FieldPolicy:      "true",
		},
		ClientIP: "203.0.113.1",
	})
	assert.True(t, res.Success)
	assert.NotEmpty(t, res.LeadID)
}

func TestBuildIntake_StoreFailureIsFatal(t *testing.T) {
	cfg := testConfig()
	cfg.LeadStore = "dynamodb"
	_, err := BuildIntake(context.Background(), cfg, failingAWS, nil, nil)
	assert.Error(t, err)
}

func TestLoadLocation(t *testing.T) {
	assert.Equal(t, time.UTC, loadLocation("", nil))
	assert.Equal(t, time.UTC, loadLocation("Mars/Olympus", logging.Default()))
}
