package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/codebuildervaibhav/quizsplice/internal/logger"
)

// DriveFile describes a file fetched from Google Drive.
type DriveFile struct {
	Name     string
	MimeType string
	Size     int64
}

// DriveFetcher copies a Drive file to dst, refusing anything of maxBytes or more.
type DriveFetcher interface {
	Fetch(ctx context.Context, fileID, dst string, maxBytes int64) (DriveFile, error)
}

// ErrDriveTooLarge is returned when a Drive file exceeds the fetch limit.
var ErrDriveTooLarge = errors.New("drive file too large")

var (
	driveFilePathRe = regexp.MustCompile(`/file/d/([a-zA-Z0-9_-]+)`)
	driveIDParamRe  = regexp.MustCompile(`[?&]id=([a-zA-Z0-9_-]+)`)
	driveBareIDRe   = regexp.MustCompile(`^([a-zA-Z0-9_-]{25,40})$`)
)

// ExtractDriveFileID pulls the file id out of the usual Drive share link shapes or a bare id
func ExtractDriveFileID(url string) string {
	url = strings.TrimSpace(url)
	for _, re := range []*regexp.Regexp{driveFilePathRe, driveIDParamRe, driveBareIDRe} {
		if m := re.FindStringSubmatch(url); len(m) > 1 {
			return m[1]
		}
	}
	return ""
}

// DriveClient handles Google Drive publishing and authenticated downloads
type DriveClient struct {
	service    *drive.Service
	folderName string
	folderID   string
	log        *logger.Logger
}

// NewDriveClient creates a new Google Drive client
func NewDriveClient(ctx context.Context, credentialsFile, tokenFile, folderName string, log *logger.Logger) (*DriveClient, error) {
	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	config, err := google.ConfigFromJSON(b, drive.DriveFileScope, drive.DriveReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}

	tok, err := tokenFromFile(tokenFile)
	if err != nil {
		if tok, err = tokenFromWeb(ctx, config); err != nil {
			return nil, err
		}
		if err := saveToken(tokenFile, tok); err != nil {
			log.Warn("unable to cache oauth token", "path", tokenFile, "error", err)
		}
	}

	srv, err := drive.NewService(ctx, option.WithHTTPClient(config.Client(ctx, tok)))
	if err != nil {
		return nil, fmt.Errorf("unable to create Drive service: %w", err)
	}

	return newDriveClient(ctx, srv, folderName, log)
}

func newDriveClient(ctx context.Context, srv *drive.Service, folderName string, log *logger.Logger) (*DriveClient, error) {
	dc := &DriveClient{
		service:    srv,
		folderName: folderName,
		log:        log.With("component", "DriveClient"),
	}

	// Find or create the root folder
	id, err := dc.findOrCreateFolder(ctx, folderName, "")
	if err != nil {
		return nil, fmt.Errorf("unable to prepare folder %q: %w", folderName, err)
	}
	dc.folderID = id
	return dc, nil
}

// tokenFromWeb runs the installed-app flow on the terminal
func tokenFromWeb(ctx context.Context, config *oauth2.Config) (*oauth2.Token, error) {
	authURL := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Printf("Go to the following link in your browser:\n%v\n", authURL)
	fmt.Print("Enter authorization code: ")

	var authCode string
	if _, err := fmt.Scan(&authCode); err != nil {
		return nil, fmt.Errorf("unable to read authorization code: %w", err)
	}

	tok, err := config.Exchange(ctx, authCode)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve token from web: %w", err)
	}
	return tok, nil
}

func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}

func saveToken(path string, token *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(token)
}

// Publish uploads a spliced video into <folder>/YYYY/MM/DD, makes it link-readable and returns
// the share link.
func (dc *DriveClient) Publish(ctx context.Context, localPath, name string) (string, error) {
	folderID, err := dc.ensureDateFolder(ctx, time.Now())
	if err != nil {
		return "", err
	}

	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open output: %w", err)
	}
	defer f.Close()

	file := &drive.File{
		Name:     sanitizeFilename(name),
		MimeType: "video/mp4",
		Parents:  []string{folderID},
	}
	created, err := dc.service.Files.Create(file).Media(f).Fields("id", "webViewLink").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to upload video: %w", err)
	}

	perm := &drive.Permission{Type: "anyone", Role: "reader"}
	if _, err := dc.service.Permissions.Create(created.Id, perm).Context(ctx).Do(); err != nil {
		dc.log.Warn("unable to share published video", "fileId", created.Id, "error", err)
	}

	if created.WebViewLink != "" {
		return created.WebViewLink, nil
	}
	return fmt.Sprintf("https://drive.google.com/file/d/%s/view", created.Id), nil
}

// Fetch downloads a Drive file the authorized account can read
func (dc *DriveClient) Fetch(ctx context.Context, fileID, dst string, maxBytes int64) (DriveFile, error) {
	meta, err := dc.service.Files.Get(fileID).Fields("name", "mimeType", "size").Context(ctx).Do()
	if err != nil {
		return DriveFile{}, fmt.Errorf("unable to read drive file metadata: %w", err)
	}
	if maxBytes > 0 && meta.Size >= maxBytes {
		return DriveFile{}, ErrDriveTooLarge
	}

	resp, err := dc.service.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return DriveFile{}, fmt.Errorf("unable to download drive file: %w", err)
	}
	defer resp.Body.Close()

	size, err := writeLimited(resp.Body, dst, maxBytes)
	if err != nil {
		return DriveFile{}, err
	}
	return DriveFile{Name: meta.Name, MimeType: meta.MimeType, Size: size}, nil
}

// ensureDateFolder creates nested year/month/day folders
func (dc *DriveClient) ensureDateFolder(ctx context.Context, t time.Time) (string, error) {
	parent := dc.folderID
	for _, name := range []string{
		fmt.Sprintf("%d", t.Year()),
		fmt.Sprintf("%02d", t.Month()),
		fmt.Sprintf("%02d", t.Day()),
	} {
		id, err := dc.findOrCreateFolder(ctx, name, parent)
		if err != nil {
			return "", err
		}
		parent = id
	}
	return parent, nil
}

// findOrCreateFolder finds or creates a folder with the given parent; an empty parent means any
func (dc *DriveClient) findOrCreateFolder(ctx context.Context, name, parentID string) (string, error) {
	query := fmt.Sprintf("name='%s' and mimeType='application/vnd.google-apps.folder' and trashed=false",
		strings.ReplaceAll(name, "'", `\'`))
	if parentID != "" {
		query += fmt.Sprintf(" and '%s' in parents", parentID)
	}

	r, err := dc.service.Files.List().Q(query).Spaces("drive").Fields("files(id)").Context(ctx).Do()
	if err != nil {
		return "", err
	}
	if len(r.Files) > 0 {
		return r.Files[0].Id, nil
	}

	folder := &drive.File{
		Name:     name,
		MimeType: "application/vnd.google-apps.folder",
	}
	if parentID != "" {
		folder.Parents = []string{parentID}
	}

	file, err := dc.service.Files.Create(folder).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", err
	}
	return file.Id, nil
}

// PublicDriveFetcher downloads files shared as "anyone with the link" without credentials.
type PublicDriveFetcher struct {
	HTTPClient *http.Client
	BaseURL    string
}

func (p PublicDriveFetcher) Fetch(ctx context.Context, fileID, dst string, maxBytes int64) (DriveFile, error) {
	base := p.BaseURL
	if base == "" {
		base = "https://drive.google.com"
	}
	client := p.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	downloadURL := fmt.Sprintf("%s/uc?export=download&id=%s", strings.TrimRight(base, "/"), fileID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return DriveFile{}, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return DriveFile{}, fmt.Errorf("failed to download from Google Drive: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return DriveFile{}, fmt.Errorf("file not accessible (status %d, may be private or missing)", resp.StatusCode)
	}
	if maxBytes > 0 && resp.ContentLength >= maxBytes {
		return DriveFile{}, ErrDriveTooLarge
	}

	size, err := writeLimited(resp.Body, dst, maxBytes)
	if err != nil {
		return DriveFile{}, err
	}

	mt, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	name := fileID
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil && params["filename"] != "" {
		name = params["filename"]
	}
	return DriveFile{Name: name, MimeType: mt, Size: size}, nil
}

// writeLimited copies r to dst and removes dst again if maxBytes or more arrive
func writeLimited(r io.Reader, dst string, maxBytes int64) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return 0, err
	}
	out, err := os.Create(dst)
	if err != nil {
		return 0, fmt.Errorf("failed to save downloaded file: %w", err)
	}

	src := r
	if maxBytes > 0 {
		src = io.LimitReader(r, maxBytes)
	}
	n, err := io.Copy(out, src)
	closeErr := out.Close()
	switch {
	case err != nil:
		os.Remove(dst)
		return 0, fmt.Errorf("failed to write downloaded file: %w", err)
	case closeErr != nil:
		os.Remove(dst)
		return 0, fmt.Errorf("failed to write downloaded file: %w", closeErr)
	case maxBytes > 0 && n >= maxBytes:
		os.Remove(dst)
		return 0, ErrDriveTooLarge
	}
	return n, nil
}
