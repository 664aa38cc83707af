package uploads

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-supplier/internal/obs"
)

func TestMain(m *testing.M) {
	obs.MustRegisterDomainMetrics("test", prometheus.NewRegistry())
	os.Exit(m.Run())
}

type fakePresigner struct {
	lastInput *s3.PutObjectInput
}

func (f *fakePresigner) PresignPutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.PresignOptions)) (*v4URL, error) {
	f.lastInput = in
	return &v4URL{URL: "https://uploads.example.com/" + *in.Key, Method: "PUT"}, nil
}

func newTestService(fake *fakePresigner) *Service {
	svc := &Service{
		Presign: fake,
		Bucket:  "supplier-assets",
		URLTTL:  15 * time.Minute,
		MaxSize: 5 << 20,
		Now:     func() time.Time { return time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC) },
	}
	return svc
}

func TestIssueURL(t *testing.T) {
	fake := &fakePresigner{}
	svc := newTestService(fake)

	res, err := svc.IssueURL(context.Background(), "sup-1", PresignInput{
		Kind:        KindPromo,
		FileName:    "banner.png",
		ContentType: "image/png",
		Size:        1024,
	})
	require.NoError(t, err)
	require.Equal(t, "PUT", res.Method)
	require.True(t, strings.HasPrefix(res.Key, "sup-1/promo/"), "key %q must be namespaced by supplier", res.Key)
	require.True(t, strings.HasSuffix(res.Key, ".png"))
	require.Equal(t, svc.Now().Add(svc.URLTTL), res.ExpiresAt)
	require.Equal(t, "supplier-assets", *fake.lastInput.Bucket)
}

func TestIssueURLValidation(t *testing.T) {
	svc := newTestService(&fakePresigner{})
	ctx := context.Background()

	_, err := svc.IssueURL(ctx, "sup-1", PresignInput{Kind: "backup", FileName: "x.png", ContentType: "image/png", Size: 1})
	require.ErrorIs(t, err, errBadKind)

	_, err = svc.IssueURL(ctx, "sup-1", PresignInput{Kind: KindPromo, FileName: "x.pdf", ContentType: "application/pdf", Size: 1})
	require.ErrorIs(t, err, errBadContentType)

	_, err = svc.IssueURL(ctx, "sup-1", PresignInput{Kind: KindPromo, FileName: "x.png", ContentType: "image/png", Size: 6 << 20})
	require.ErrorIs(t, err, errTooLarge)

	_, err = svc.IssueURL(ctx, "sup-1", PresignInput{Kind: KindPromo, FileName: "x.png", ContentType: "image/png"})
	require.Error(t, err, "zero size fails validation")
}

func TestIssueURLKeysAreUnique(t *testing.T) {
	svc := newTestService(&fakePresigner{})
	in := PresignInput{Kind: KindAvatar, FileName: "me.jpg", ContentType: "image/jpeg", Size: 10}

	first, err := svc.IssueURL(context.Background(), "sup-1", in)
	require.NoError(t, err)
	second, err := svc.IssueURL(context.Background(), "sup-1", in)
	require.NoError(t, err)
	require.NotEqual(t, first.Key, second.Key)
}
