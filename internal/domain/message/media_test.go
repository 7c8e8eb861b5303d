package message

import (
	"errors"
	"testing"

	portal_errors "agency-portal/pkg/errors"
)

func TestKindForMime(t *testing.T) {
	cases := []struct {
		mime string
		want string
	}{
		{"image/png", KindImage},
		{"image/webp", KindImage},
		{"video/mp4", KindVideo},
		{"application/pdf", KindDocument},
		{"text/csv", KindDocument},
		{"application/zip", KindOther},
		{"", KindOther},
	}
	for _, tc := range cases {
		if got := KindForMime(tc.mime); got != tc.want {
			t.Errorf("KindForMime(%q) = %q, want %q", tc.mime, got, tc.want)
		}
	}
}

func TestValidateAttachment(t *testing.T) {
	valid := Attachment{FileName: "report.pdf", FilePath: "https://cdn/x.pdf", FileSize: 100, MimeType: "application/pdf", Kind: KindDocument}
	if err := ValidateAttachment(valid); err != nil {
		t.Fatal(err)
	}

	missingName := valid
	missingName.FileName = ""
	if err := ValidateAttachment(missingName); !errors.Is(err, portal_errors.ErrInvalidInput) {
		t.Fatalf("expected invalid input for missing name, got %v", err)
	}

	zeroSize := valid
	zeroSize.FileSize = 0
	if err := ValidateAttachment(zeroSize); !errors.Is(err, portal_errors.ErrInvalidInput) {
		t.Fatalf("expected invalid input for zero size, got %v", err)
	}

	badKind := valid
	badKind.Kind = "archive"
	if err := ValidateAttachment(badKind); !errors.Is(err, portal_errors.ErrUnsupportedMedia) {
		t.Fatalf("expected unsupported media for unknown kind, got %v", err)
	}
}
