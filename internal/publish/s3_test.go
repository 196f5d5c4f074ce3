package publish

import (
	"context"
	stderrors "errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/libukai/Anki-Addon-Dev-ToolKit/internal/config"
	"github.com/libukai/Anki-Addon-Dev-ToolKit/internal/errors"
)

type fakeS3 struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.input = in
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.body = body
	return &s3.PutObjectOutput{}, nil
}

func testConfig() *config.Config {
	cfg := config.New()
	cfg.RepoName = "review-heatmap"
	cfg.Publish.Bucket = "addon-releases"
	cfg.Publish.Prefix = "review-heatmap/"
	return cfg
}

func writeArtifact(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("PK zip bytes"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestUpload(t *testing.T) {
	fake := &fakeS3{}
	u, err := NewS3Uploader(testConfig(), fake)
	if err != nil {
		t.Fatal(err)
	}

	artifact := writeArtifact(t, "review-heatmap-v1.2.0-ankiweb.ankiaddon")
	uri, err := u.Upload(context.Background(), artifact)
	if err != nil {
		t.Fatalf("Upload error: %v", err)
	}

	if uri != "s3://addon-releases/review-heatmap/review-heatmap-v1.2.0-ankiweb.ankiaddon" {
		t.Errorf("uri = %q", uri)
	}
	if *fake.input.Bucket != "addon-releases" {
		t.Errorf("Bucket = %q", *fake.input.Bucket)
	}
	if *fake.input.ContentType != ContentType {
		t.Errorf("ContentType = %q", *fake.input.ContentType)
	}
	if *fake.input.ContentLength != int64(len("PK zip bytes")) {
		t.Errorf("ContentLength = %d", *fake.input.ContentLength)
	}
	if string(fake.body) != "PK zip bytes" {
		t.Errorf("body = %q", fake.body)
	}
	if fake.input.Metadata["addon-version"] != "v1.2.0" || fake.input.Metadata["addon-target"] != "ankiweb" {
		t.Errorf("Metadata = %v", fake.input.Metadata)
	}
}

func TestUploadErrors(t *testing.T) {
	cfg := testConfig()
	cfg.Publish.Bucket = ""
	if _, err := NewS3Uploader(cfg, &fakeS3{}); !errors.HasCode(err, "E130") {
		t.Errorf("missing bucket error = %v, want E130", err)
	}

	u, err := NewS3Uploader(testConfig(), &fakeS3{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := u.Upload(context.Background(), filepath.Join(t.TempDir(), "missing.ankiaddon")); !errors.HasCode(err, "E130") {
		t.Errorf("missing artifact error = %v, want E130", err)
	}

	cause := stderrors.New("AccessDenied")
	u, err = NewS3Uploader(testConfig(), &fakeS3{err: cause})
	if err != nil {
		t.Fatal(err)
	}
	_, err = u.Upload(context.Background(), writeArtifact(t, "review-heatmap-v1.ankiaddon"))
	if !stderrors.Is(err, cause) {
		t.Errorf("error = %v, want wrapped AccessDenied", err)
	}
}

func TestParseArtifactName(t *testing.T) {
	tests := []struct {
		name        string
		wantVersion string
		wantTarget  string
	}{
		{"review-heatmap-v1.2.0.ankiaddon", "v1.2.0", "local"},
		{"review-heatmap-v1.2.0-ankiweb.ankiaddon", "v1.2.0", "ankiweb"},
		{"review-heatmap-dev.ankiaddon", "dev", "local"},
		{"review-heatmap-0123abcd-ankiweb.ankiaddon", "0123abcd", "ankiweb"},
	}
	for _, tt := range tests {
		v, target := ParseArtifactName("review-heatmap", tt.name)
		if v != tt.wantVersion || target != tt.wantTarget {
			t.Errorf("ParseArtifactName(%q) = %q, %q", tt.name, v, target)
		}
	}
}

// isolateAWSEnv points the SDK's configuration chain at an empty home so
// that the machine's own profiles do not leak into a test.
func isolateAWSEnv(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("AWS_CONFIG_FILE", filepath.Join(dir, "config"))
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", filepath.Join(dir, "credentials"))
	for _, key := range []string{"AWS_PROFILE", "AWS_REGION", "AWS_DEFAULT_REGION",
		"AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY", "AWS_SESSION_TOKEN"} {
		t.Setenv(key, "")
	}
}

func TestNewS3Client(t *testing.T) {
	isolateAWSEnv(t)
	ctx := context.Background()

	if _, err := NewS3Client(ctx, config.PublishConfig{}); !errors.HasCode(err, "E130") {
		t.Errorf("missing region error = %v, want E130", err)
	}

	client, err := NewS3Client(ctx, config.PublishConfig{
		Region:    "auto",
		Endpoint:  "https://example.r2.cloudflarestorage.com",
		PathStyle: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	opts := client.Options()
	if opts.Region != "auto" || !opts.UsePathStyle || *opts.BaseEndpoint != "https://example.r2.cloudflarestorage.com" {
		t.Errorf("options = region %q path-style %v endpoint %v", opts.Region, opts.UsePathStyle, opts.BaseEndpoint)
	}
}

func TestNewS3ClientDefaultChain(t *testing.T) {
	isolateAWSEnv(t)
	t.Setenv("AWS_REGION", "eu-central-1")
	t.Setenv("AWS_ACCESS_KEY_ID", "AKID")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "secret")
	t.Setenv("AWS_SESSION_TOKEN", "token")

	client, err := NewS3Client(context.Background(), config.PublishConfig{})
	if err != nil {
		t.Fatal(err)
	}
	opts := client.Options()
	if opts.Region != "eu-central-1" {
		t.Errorf("Region = %q, want the environment's", opts.Region)
	}
	if opts.UsePathStyle || opts.BaseEndpoint != nil {
		t.Errorf("path-style %v endpoint %v, want SDK defaults", opts.UsePathStyle, opts.BaseEndpoint)
	}

	creds, err := opts.Credentials.Retrieve(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if creds.AccessKeyID != "AKID" || creds.SecretAccessKey != "secret" || creds.SessionToken != "token" {
		t.Errorf("creds = %+v", creds)
	}
}

func TestNewS3ClientProfile(t *testing.T) {
	isolateAWSEnv(t)
	home := t.TempDir()
	cfgFile := filepath.Join(home, "config")
	credFile := filepath.Join(home, "credentials")
	if err := os.WriteFile(cfgFile, []byte("[profile release]\nregion = us-west-2\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(credFile, []byte("[release]\naws_access_key_id = PROFILEKEY\naws_secret_access_key = profilesecret\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("AWS_CONFIG_FILE", cfgFile)
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", credFile)
	t.Setenv("AWS_PROFILE", "release")

	client, err := NewS3Client(context.Background(), config.PublishConfig{Region: "eu-west-1"})
	if err != nil {
		t.Fatal(err)
	}
	opts := client.Options()
	if opts.Region != "eu-west-1" {
		t.Errorf("Region = %q, publish.region should win over the profile", opts.Region)
	}
	creds, err := opts.Credentials.Retrieve(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if creds.AccessKeyID != "PROFILEKEY" {
		t.Errorf("AccessKeyID = %q, want the profile's", creds.AccessKeyID)
	}
}
