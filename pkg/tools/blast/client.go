package blast

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-go-golems/bionet/pkg/settings"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const DefaultBaseURL = "https://blast.ncbi.nlm.nih.gov/Blast.cgi"

var (
	ErrSearchFailed = errors.New("BLAST search failed")
	ErrInvalidQuery = errors.New("invalid sequence")
)

// Client talks to the NCBI BLAST URL API.
type Client struct {
	baseURL      string
	program      string
	database     string
	hitlistSize  int
	pollInterval time.Duration
	timeout      time.Duration
	http         *http.Client
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithPollInterval(d time.Duration) Option {
	return func(c *Client) { c.pollInterval = d }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func WithHitlistSize(n int) Option {
	return func(c *Client) { c.hitlistSize = n }
}

func WithProgram(program string, database string) Option {
	return func(c *Client) {
		c.program = program
		c.database = database
	}
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:      DefaultBaseURL,
		program:      "blastn",
		database:     "nt",
		hitlistSize:  10,
		pollInterval: 10 * time.Second,
		timeout:      10 * time.Minute,
		http:         http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func NewClientFromSettings(s *settings.ToolSettings, opts ...Option) *Client {
	base := []Option{}
	if s != nil {
		if s.BlastBaseURL != "" {
			base = append(base, WithBaseURL(s.BlastBaseURL))
		}
		if s.BlastProgram != "" && s.BlastDatabase != "" {
			base = append(base, WithProgram(s.BlastProgram, s.BlastDatabase))
		}
		if s.BlastPollInterval > 0 {
			base = append(base, WithPollInterval(s.BlastPollInterval))
		}
		if s.BlastTimeout > 0 {
			base = append(base, WithTimeout(s.BlastTimeout))
		}
	}
	return NewClient(append(base, opts...)...)
}

var nucleotideRe = regexp.MustCompile(`^[ACGTURYKMSWBDHVN\-]+$`)

// NormalizeSequence strips a FASTA header and whitespace and upper-cases the
// sequence.
func NormalizeSequence(query string) (string, error) {
	var sb strings.Builder
	for _, line := range strings.Split(strings.TrimSpace(query), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, ">") {
			continue
		}
		sb.WriteString(strings.Join(strings.Fields(line), ""))
	}
	seq := strings.ToUpper(sb.String())
	if seq == "" {
		return "", errors.Wrap(ErrInvalidQuery, "empty sequence")
	}
	if !nucleotideRe.MatchString(seq) {
		return "", errors.Wrapf(ErrInvalidQuery, "%q is not a nucleotide sequence", query)
	}
	return seq, nil
}

// Search submits the sequence, waits for the job and returns every record.
func (c *Client) Search(ctx context.Context, query string) ([]Record, error) {
	seq, err := NormalizeSequence(query)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	rid, rtoe, err := c.Submit(ctx, seq)
	if err != nil {
		return nil, err
	}
	log.Info().Str("rid", rid).Dur("estimate", rtoe).Msg("blast: submitted")

	if err := c.Wait(ctx, rid, rtoe); err != nil {
		return nil, err
	}
	return c.Fetch(ctx, rid)
}

var (
	ridRe    = regexp.MustCompile(`RID = (\S+)`)
	rtoeRe   = regexp.MustCompile(`RTOE = (\d+)`)
	statusRe = regexp.MustCompile(`Status=(\w+)`)
)

func (c *Client) do(ctx context.Context, method string, params url.Values) ([]byte, error) {
	var req *http.Request
	var err error
	if method == http.MethodPost {
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL, bytes.NewBufferString(params.Encode()))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	} else {
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+"?"+params.Encode(), nil)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to send request")
	}
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response body")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("BLAST returned %d", resp.StatusCode)
	}
	return body, nil
}

// Submit issues CMD=Put and returns the request id and the estimated time
// to completion.
func (c *Client) Submit(ctx context.Context, sequence string) (string, time.Duration, error) {
	params := url.Values{}
	params.Set("CMD", "Put")
	params.Set("PROGRAM", c.program)
	params.Set("DATABASE", c.database)
	params.Set("QUERY", sequence)
	params.Set("HITLIST_SIZE", strconv.Itoa(c.hitlistSize))

	body, err := c.do(ctx, http.MethodPost, params)
	if err != nil {
		return "", 0, errors.Wrap(err, "submitting BLAST query")
	}
	m := ridRe.FindSubmatch(body)
	if m == nil {
		return "", 0, errors.Wrap(ErrSearchFailed, "no RID in submission response")
	}
	rid := string(m[1])

	var rtoe time.Duration
	if m := rtoeRe.FindSubmatch(body); m != nil {
		secs, _ := strconv.Atoi(string(m[1]))
		rtoe = time.Duration(secs) * time.Second
	}
	return rid, rtoe, nil
}

// Status returns WAITING, READY, FAILED or UNKNOWN, and whether there are hits.
func (c *Client) Status(ctx context.Context, rid string) (string, bool, error) {
	params := url.Values{}
	params.Set("CMD", "Get")
	params.Set("FORMAT_OBJECT", "SearchInfo")
	params.Set("RID", rid)

	body, err := c.do(ctx, http.MethodGet, params)
	if err != nil {
		return "", false, errors.Wrap(err, "polling BLAST status")
	}
	m := statusRe.FindSubmatch(body)
	if m == nil {
		return "", false, errors.Wrap(ErrSearchFailed, "no status in search info")
	}
	return string(m[1]), bytes.Contains(body, []byte("ThereAreHits=yes")), nil
}

// Wait polls until the job is READY. The first poll happens after the
// estimate, bounded by the poll interval.
func (c *Client) Wait(ctx context.Context, rid string, estimate time.Duration) error {
	delay := estimate
	if delay > c.pollInterval || delay <= 0 {
		delay = c.pollInterval
	}
	for {
		select {
		case <-ctx.Done():
			return errors.Wrapf(ctx.Err(), "waiting for BLAST job %s", rid)
		case <-time.After(delay):
		}
		delay = c.pollInterval

		status, hits, err := c.Status(ctx, rid)
		if err != nil {
			return err
		}
		log.Debug().Str("rid", rid).Str("status", status).Msg("blast: polled")
		switch status {
		case "WAITING":
			continue
		case "READY":
			if !hits {
				log.Info().Str("rid", rid).Msg("blast: no hits")
			}
			return nil
		default:
			return errors.Wrapf(ErrSearchFailed, "job %s status %s", rid, status)
		}
	}
}

func (c *Client) Fetch(ctx context.Context, rid string) ([]Record, error) {
	params := url.Values{}
	params.Set("CMD", "Get")
	params.Set("FORMAT_TYPE", "XML")
	params.Set("RID", rid)

	body, err := c.do(ctx, http.MethodGet, params)
	if err != nil {
		return nil, errors.Wrap(err, "fetching BLAST results")
	}
	return ParseXML(bytes.NewReader(body))
}
