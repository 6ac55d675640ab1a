package datasource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/chkomi/lotto/internal/models"
)

const (
	// DefaultAPIURL is the official draw result endpoint.
	DefaultAPIURL = "https://www.dhlottery.co.kr/common.do"

	// drawDateLayout matches the drwNoDate field of the API response.
	drawDateLayout = "2006-01-02"

	// maxLatestProbes bounds the search around the estimated latest round.
	maxLatestProbes = 8
)

// firstDrawTime is when round 1 was announced. Rounds are weekly, so the
// current round number can be estimated from elapsed time alone.
var firstDrawTime = time.Date(2002, time.December, 7, 20, 45, 0, 0, time.FixedZone("KST", 9*60*60))

// DHLotteryClient implements DrawSource against the official lottery API.
type DHLotteryClient struct {
	httpClient *RateLimitedHTTPClient
	baseURL    string
	cache      *cache.Cache
	logger     *logrus.Logger
}

// dhDrawResponse mirrors the getLottoNumber API payload. The API reports
// failure in-band via returnValue rather than HTTP status codes.
type dhDrawResponse struct {
	ReturnValue       string `json:"returnValue"`
	Round             int    `json:"drwNo"`
	Date              string `json:"drwNoDate"`
	Num1              int    `json:"drwtNo1"`
	Num2              int    `json:"drwtNo2"`
	Num3              int    `json:"drwtNo3"`
	Num4              int    `json:"drwtNo4"`
	Num5              int    `json:"drwtNo5"`
	Num6              int    `json:"drwtNo6"`
	Bonus             int    `json:"bnusNo"`
	FirstPrizeAmount  int64  `json:"firstWinamnt"`
	FirstPrizeWinners int    `json:"firstPrzwnerCo"`
	TotalSales        int64  `json:"totSellamnt"`
}

// NewDHLotteryClient creates a client for the official draw API. Fetched
// rounds are cached for cacheTTL; published results never change, so the
// TTL only bounds memory growth.
func NewDHLotteryClient(httpClient *RateLimitedHTTPClient, baseURL string, cacheTTL time.Duration, logger *logrus.Logger) *DHLotteryClient {
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	return &DHLotteryClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		cache:      cache.New(cacheTTL, 2*cacheTTL),
		logger:     logger,
	}
}

// FetchDraw retrieves a single round by its round number.
func (c *DHLotteryClient) FetchDraw(ctx context.Context, round int) (*models.DrawRecord, error) {
	if round <= 0 {
		return nil, NewDataSourceError(c.Name(), ErrCodeInvalidData, fmt.Sprintf("invalid round %d", round), models.ErrInvalidRound)
	}

	if cached, ok := c.cache.Get(strconv.Itoa(round)); ok {
		record := cached.(models.DrawRecord)
		return &record, nil
	}

	url := fmt.Sprintf("%s?method=getLottoNumber&drwNo=%d", c.baseURL, round)

	resp, err := c.httpClient.Get(ctx, url)
	if err != nil {
		return nil, NewDataSourceError(c.Name(), ErrCodeNetworkError, "failed to fetch draw", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, NewDataSourceError(c.Name(), ErrCodeRateLimitExceeded, "rate limit exceeded", ErrRateLimitExceeded)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, NewDataSourceError(c.Name(), ErrCodeServerError, fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, string(body)), ErrServerError)
	}

	var dhResp dhDrawResponse
	if err := json.NewDecoder(resp.Body).Decode(&dhResp); err != nil {
		return nil, NewDataSourceError(c.Name(), ErrCodeInvalidData, "failed to parse response", err)
	}

	if dhResp.ReturnValue != "success" {
		return nil, NewDataSourceError(c.Name(), ErrCodeNotFound, fmt.Sprintf("round %d not published", round), ErrRoundNotFound)
	}

	record, err := c.convertDraw(&dhResp)
	if err != nil {
		return nil, err
	}

	c.cache.Set(strconv.Itoa(record.Round), *record, cache.DefaultExpiration)
	return record, nil
}

// FetchLatest retrieves the most recent published round. The API has no
// latest-round endpoint, so the round number is estimated from elapsed
// weeks and then corrected by probing neighbours.
func (c *DHLotteryClient) FetchLatest(ctx context.Context) (*models.DrawRecord, error) {
	round := EstimateLatestRound(time.Now())

	// Walk down until a published round is found.
	var record *models.DrawRecord
	for probe := 0; probe < maxLatestProbes && round > 0; probe++ {
		rec, err := c.FetchDraw(ctx, round)
		if err == nil {
			record = rec
			break
		}
		if !isNotFound(err) {
			return nil, err
		}
		round--
	}
	if record == nil {
		return nil, NewDataSourceError(c.Name(), ErrCodeNotFound, "no published round near estimate", ErrRoundNotFound)
	}

	// Walk up in case the estimate undershot.
	for probe := 0; probe < maxLatestProbes; probe++ {
		rec, err := c.FetchDraw(ctx, record.Round+1)
		if err != nil {
			if !isNotFound(err) {
				return nil, err
			}
			break
		}
		record = rec
	}

	return record, nil
}

// FetchRange retrieves rounds fromRound through toRound inclusive. The
// range ends early without error once an unpublished round is reached.
func (c *DHLotteryClient) FetchRange(ctx context.Context, fromRound, toRound int) ([]models.DrawRecord, error) {
	if fromRound <= 0 || toRound < fromRound {
		return nil, NewDataSourceError(c.Name(), ErrCodeInvalidData, fmt.Sprintf("invalid range %d..%d", fromRound, toRound), models.ErrInvalidRound)
	}

	records := make([]models.DrawRecord, 0, toRound-fromRound+1)
	for round := fromRound; round <= toRound; round++ {
		record, err := c.FetchDraw(ctx, round)
		if err != nil {
			if isNotFound(err) {
				break
			}
			return nil, err
		}
		records = append(records, *record)
	}

	return records, nil
}

// Name returns the draw source name
func (c *DHLotteryClient) Name() string {
	return "dhlottery"
}

// convertDraw converts the API payload into a validated draw record.
func (c *DHLotteryClient) convertDraw(dhResp *dhDrawResponse) (*models.DrawRecord, error) {
	date, err := time.Parse(drawDateLayout, dhResp.Date)
	if err != nil {
		return nil, NewDataSourceError(c.Name(), ErrCodeInvalidData, fmt.Sprintf("round %d: bad draw date %q", dhResp.Round, dhResp.Date), err)
	}

	numbers := []int{dhResp.Num1, dhResp.Num2, dhResp.Num3, dhResp.Num4, dhResp.Num5, dhResp.Num6}
	sort.Ints(numbers)

	record := &models.DrawRecord{
		Round:             dhResp.Round,
		Date:              date,
		Bonus:             dhResp.Bonus,
		FirstPrizeAmount:  decimal.NewFromInt(dhResp.FirstPrizeAmount),
		FirstPrizeWinners: dhResp.FirstPrizeWinners,
		TotalSales:        decimal.NewFromInt(dhResp.TotalSales),
	}
	copy(record.Numbers[:], numbers)

	if err := record.Validate(); err != nil {
		return nil, NewDataSourceError(c.Name(), ErrCodeInvalidData, fmt.Sprintf("round %d: malformed draw", dhResp.Round), err)
	}

	return record, nil
}

// EstimateLatestRound estimates the current round number from elapsed weeks
// since the first draw. The estimate can be off by one around the weekly
// draw time; callers must verify against the API.
func EstimateLatestRound(now time.Time) int {
	if now.Before(firstDrawTime) {
		return 1
	}
	weeks := int(now.Sub(firstDrawTime) / (7 * 24 * time.Hour))
	return weeks + 1
}

// isNotFound reports whether err is an unpublished-round error.
func isNotFound(err error) bool {
	return errors.Is(err, ErrRoundNotFound)
}
