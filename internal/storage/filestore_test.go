package storage

import (
	"errors"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/vdb2/vdb2/internal/models"
)

func TestFileStore_Save(t *testing.T) {
	root := t.TempDir()
	s, err := NewFileStore(root, 8)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		field   string
		upload  models.FileUpload
		wantRef string
		want    string
		wantErr error
	}{
		{
			name:    "data url",
			field:   "photo",
			upload:  models.FileUpload{FileData: "data:image/jpeg;base64,aGk=", FileName: "a.jpg"},
			wantRef: "vdb_files/vdb_2/3_photo_a.jpg",
			want:    "hi",
		},
		{
			name:    "bare base64",
			field:   "doc",
			upload:  models.FileUpload{FileData: "aGVsbG8=", FileName: "h.txt"},
			wantRef: "vdb_files/vdb_2/3_doc_h.txt",
			want:    "hello",
		},
		{
			name:    "unpadded",
			field:   "doc",
			upload:  models.FileUpload{FileData: "aGk", FileName: "u.txt"},
			wantRef: "vdb_files/vdb_2/3_doc_u.txt",
			want:    "hi",
		},
		{
			name:    "path elements stripped",
			field:   "scan",
			upload:  models.FileUpload{FileData: "aGk=", FileName: `..\..\evil/x.png`},
			wantRef: "vdb_files/vdb_2/3_scan_x.png",
			want:    "hi",
		},
		{
			name:    "url escaped",
			field:   "doc",
			upload:  models.FileUpload{FileData: "aGk=", FileName: "my pic#1?%.png"},
			wantRef: "vdb_files/vdb_2/3_doc_my%20pic%231%3F%25.png",
			want:    "hi",
		},
		{
			name:    "malformed",
			field:   "photo",
			upload:  models.FileUpload{FileData: "data:image/png;base64,!!!not base64", FileName: "a.png"},
			wantErr: ErrDecode,
		},
		{
			name:    "traversal name",
			field:   "photo",
			upload:  models.FileUpload{FileData: "aGk=", FileName: "../.."},
			wantErr: ErrInvalidFileName,
		},
		{
			name:    "empty name",
			field:   "photo",
			upload:  models.FileUpload{FileData: "aGk=", FileName: ""},
			wantErr: ErrInvalidFileName,
		},
		{
			name:    "too large",
			field:   "photo",
			upload:  models.FileUpload{FileData: "MDEyMzQ1Njc4OQ==", FileName: "big.bin"},
			wantErr: ErrAttachmentTooLarge,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := s.Save(2, 3, tt.field, tt.upload)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Save error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Save failed: %v", err)
			}
			if ref != tt.wantRef {
				t.Errorf("ref = %q, want %q", ref, tt.wantRef)
			}
			rel, err := url.PathUnescape(ref[len(RefPrefix)+1:])
			if err != nil {
				t.Fatal(err)
			}
			got, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
			if err != nil {
				t.Fatal(err)
			}
			if string(got) != tt.want {
				t.Errorf("content = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFileStore_OpenRemove(t *testing.T) {
	root := t.TempDir()
	s, err := NewFileStore(root, 0)
	if err != nil {
		t.Fatal(err)
	}
	ref, err := s.Save(1, 1, "f", models.FileUpload{FileData: "aGk=", FileName: "a.txt"})
	if err != nil {
		t.Fatal(err)
	}

	f, info, err := s.Open("vdb_1/1_f_a.txt")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	b, err := io.ReadAll(f)
	_ = f.Close()
	if err != nil || string(b) != "hi" || info.Size() != 2 {
		t.Errorf("Open read %q (%d bytes), %v", b, info.Size(), err)
	}

	for _, bad := range []string{"vdb_1", "vdb_1/missing", "../outside", "vdb_1/../../outside"} {
		if _, _, err := s.Open(bad); !errors.Is(err, fs.ErrNotExist) {
			t.Errorf("Open(%q) error = %v, want ErrNotExist", bad, err)
		}
	}

	if err := s.Remove(ref); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, _, err := s.Open("vdb_1/1_f_a.txt"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("file still present after Remove: %v", err)
	}
	ref, err = s.Save(1, 2, "f", models.FileUpload{FileData: "aGk=", FileName: "a b#.txt"})
	if err != nil {
		t.Fatal(err)
	}
	if want := "vdb_files/vdb_1/2_f_a%20b%23.txt"; ref != want {
		t.Errorf("ref = %q, want %q", ref, want)
	}
	if err := s.Remove(ref); err != nil {
		t.Fatalf("Remove(%q) failed: %v", ref, err)
	}
	if _, _, err := s.Open("vdb_1/2_f_a b#.txt"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("escaped file still present after Remove: %v", err)
	}
	if err := s.Remove("elsewhere/x"); !errors.Is(err, ErrInvalidFileName) {
		t.Errorf("Remove(foreign ref) error = %v", err)
	}
}

func TestFileStore_Ref(t *testing.T) {
	s, err := NewFileStore(t.TempDir(), 0)
	if err != nil {
		t.Fatal(err)
	}
	ref, err := s.Ref(4, 9, `dir\photo`, "../a.jpg")
	if err != nil {
		t.Fatal(err)
	}
	if want := "vdb_files/vdb_4/9_photo_a.jpg"; ref != want {
		t.Errorf("Ref() = %q, want %q", ref, want)
	}
	saved, err := s.Save(4, 9, `dir\photo`, models.FileUpload{FileData: "aGk=", FileName: "../a.jpg"})
	if err != nil {
		t.Fatal(err)
	}
	if saved != ref {
		t.Errorf("Save() = %q, Ref() = %q", saved, ref)
	}
	if _, err := s.Ref(4, 9, "photo", ".."); !errors.Is(err, ErrInvalidFileName) {
		t.Errorf("Ref(..) error = %v", err)
	}
}
