package export

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/go-pdf/fpdf"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/trombinoscope-api/internal/models"
)

// PhotoSheetTitle heads the photo sheet.
const PhotoSheetTitle = "Trombinoscope EGE"

const (
	photoColumns    = 4
	photoGap        = 6.0
	photoHeight     = 38.0
	photoCardHeight = 54.0
	maxPhotoBytes   = 10 << 20
	fetchWorkers    = 4
)

// ErrUnsupportedPhoto is returned for references that are neither data URIs nor https URLs.
var ErrUnsupportedPhoto = errors.New("unsupported photo reference")

// PhotoFetcher downloads a remote photo.
type PhotoFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// ErrBlockedAddress is returned when a photo URL resolves to a loopback,
// private or otherwise non-public address.
var ErrBlockedAddress = errors.New("photo host resolves to a non-public address")

// sharedAddressSpace is the carrier-grade NAT range (RFC 6598).
var sharedAddressSpace = &net.IPNet{IP: net.IPv4(100, 64, 0, 0), Mask: net.CIDRMask(10, 32)}

// HTTPFetcher fetches https photos with a per-request timeout. Connections
// to non-public addresses are refused at dial time, redirects included.
type HTTPFetcher struct {
	Timeout time.Duration

	once   sync.Once
	client *http.Client
}

// Fetch implements PhotoFetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme != "https" || parsed.Host == "" {
		return nil, ErrUnsupportedPhoto
	}
	f.once.Do(func() { f.client = newGuardedClient() })

	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("photo fetch returned status %d", resp.StatusCode)
	}
	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxPhotoBytes+1))
	if err != nil {
		return nil, err
	}
	if len(payload) > maxPhotoBytes {
		return nil, fmt.Errorf("photo exceeds %d bytes", maxPhotoBytes)
	}
	return payload, nil
}

func newGuardedClient() *http.Client {
	dialer := &net.Dialer{Timeout: 10 * time.Second, Control: refuseNonPublic}
	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
		MaxIdleConns:        fetchWorkers,
	}
	return &http.Client{
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if req.URL.Scheme != "https" {
				return ErrUnsupportedPhoto
			}
			if len(via) >= 3 {
				return errors.New("too many photo redirects")
			}
			return nil
		},
	}
}

// refuseNonPublic runs after name resolution, so address is always an IP.
func refuseNonPublic(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return ErrBlockedAddress
	}
	ip := net.ParseIP(host)
	if ip == nil || !isPublicIP(ip) {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, host)
	}
	return nil
}

func isPublicIP(ip net.IP) bool {
	switch {
	case ip.IsLoopback(), ip.IsPrivate(), ip.IsUnspecified(),
		ip.IsLinkLocalUnicast(), ip.IsLinkLocalMulticast(),
		ip.IsInterfaceLocalMulticast(), ip.IsMulticast():
		return false
	case sharedAddressSpace.Contains(ip):
		return false
	}
	return true
}

type decodedPhoto struct {
	data   []byte
	kind   string
	width  int
	height int
}

// PhotoSheet renders a grid of student cards. Photos that cannot be loaded
// or decoded are replaced by an initials box.
func PhotoSheet(ctx context.Context, students []models.Student, fetcher PhotoFetcher, now time.Time) ([]byte, error) {
	photos := loadPhotos(ctx, students, fetcher)

	p := newPage(PhotoSheetTitle, now)
	p.font("B", 20)
	p.centered(PhotoSheetTitle)
	p.y += 10
	p.font("", 10)
	p.centered("Généré le " + now.Format(DateLayout))
	p.y += 10

	cardWidth := (p.width - 2*pageMargin - float64(photoColumns-1)*photoGap) / photoColumns
	for i, student := range students {
		column := i % photoColumns
		if column == 0 && i > 0 {
			p.y += photoCardHeight
		}
		if column == 0 {
			p.ensure(photoCardHeight)
		}
		x := pageMargin + float64(column)*(cardWidth+photoGap)
		drawCard(p, x, cardWidth, student, photos[i], i)
	}

	if err := p.pdf.Error(); err != nil {
		return nil, fmt.Errorf("failed to render photo sheet: %w", err)
	}
	return p.bytes()
}

func loadPhotos(ctx context.Context, students []models.Student, fetcher PhotoFetcher) []*decodedPhoto {
	photos := make([]*decodedPhoto, len(students))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(fetchWorkers)

	for i, student := range students {
		if !student.HasPhoto() {
			continue
		}
		i, ref := i, strings.TrimSpace(student.Photo)
		group.Go(func() error {
			payload, err := readPhoto(groupCtx, ref, fetcher)
			if err != nil {
				return nil
			}
			photos[i] = decodePhoto(payload)
			return nil
		})
	}
	_ = group.Wait()
	return photos
}

func readPhoto(ctx context.Context, ref string, fetcher PhotoFetcher) ([]byte, error) {
	if strings.HasPrefix(ref, "data:") {
		return decodeDataURI(ref)
	}
	parsed, err := url.Parse(ref)
	if err != nil || parsed.Scheme != "https" || fetcher == nil {
		return nil, ErrUnsupportedPhoto
	}
	return fetcher.Fetch(ctx, ref)
}

func decodeDataURI(ref string) ([]byte, error) {
	comma := strings.IndexByte(ref, ',')
	if comma < 0 {
		return nil, ErrUnsupportedPhoto
	}
	meta, payload := ref[len("data:"):comma], ref[comma+1:]
	if !strings.HasSuffix(meta, ";base64") {
		return nil, ErrUnsupportedPhoto
	}
	return base64.StdEncoding.DecodeString(payload)
}

func decodePhoto(payload []byte) *decodedPhoto {
	config, format, err := image.DecodeConfig(bytes.NewReader(payload))
	if err != nil || config.Width == 0 || config.Height == 0 {
		return nil
	}
	kinds := map[string]string{"jpeg": "JPG", "png": "PNG", "gif": "GIF"}
	kind, ok := kinds[format]
	if !ok {
		return nil
	}
	return &decodedPhoto{data: payload, kind: kind, width: config.Width, height: config.Height}
}

func drawCard(p *page, x, width float64, student models.Student, photo *decodedPhoto, index int) {
	top := p.y
	if !drawPhoto(p, x, top, width, photo, index) {
		drawInitials(p, x, top, width, student)
	}

	p.pdf.SetTextColor(0, 0, 0)
	p.font("B", 9)
	name := p.fit(p.tr(student.FullName()), width)
	p.pdf.Text(x+(width-p.pdf.GetStringWidth(name))/2, top+photoHeight+6, name)

	p.font("", 8)
	number := p.fit(p.tr(student.StudentNumber), width)
	p.pdf.Text(x+(width-p.pdf.GetStringWidth(number))/2, top+photoHeight+10, number)
}

func drawPhoto(p *page, x, y, width float64, photo *decodedPhoto, index int) bool {
	if photo == nil {
		return false
	}
	name := fmt.Sprintf("photo-%d", index)
	options := fpdf.ImageOptions{ImageType: photo.kind}
	p.pdf.RegisterImageOptionsReader(name, options, bytes.NewReader(photo.data))
	if !p.pdf.Ok() {
		p.pdf.ClearError()
		return false
	}

	scale := width / float64(photo.width)
	if h := photoHeight / float64(photo.height); h < scale {
		scale = h
	}
	w, h := float64(photo.width)*scale, float64(photo.height)*scale
	p.pdf.ImageOptions(name, x+(width-w)/2, y+(photoHeight-h)/2, w, h, false, options, 0, "")
	return true
}

func drawInitials(p *page, x, y, width float64, student models.Student) {
	p.pdf.SetFillColor(25, 118, 210)
	p.pdf.Rect(x, y, width, photoHeight, "F")

	initials := p.tr(student.Initials())
	if initials == "" {
		initials = "?"
	}
	p.pdf.SetTextColor(255, 255, 255)
	p.font("B", 22)
	p.pdf.Text(x+(width-p.pdf.GetStringWidth(initials))/2, y+photoHeight/2+3, initials)
}
