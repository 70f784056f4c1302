// Package ledger is the client side of the user credit balance. The
// generation studio only consumes it: balances are debited when jobs are
// submitted and refunded when they cannot be queued.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrInsufficientCredits is returned when a debit exceeds the balance.
	ErrInsufficientCredits = errors.New("insufficient credits")

	// ErrInvalidAmount is returned for negative or non-finite amounts.
	ErrInvalidAmount = errors.New("invalid credit amount")
)

// Ledger tracks credit balances per user.
type Ledger interface {
	Balance(ctx context.Context, userID string) (float64, error)

	// Debit removes amount and returns the new balance. A repeated ref is
	// applied once.
	Debit(ctx context.Context, userID string, amount float64, ref string) (float64, error)

	// Credit adds amount and returns the new balance. A repeated ref is
	// applied once.
	Credit(ctx context.Context, userID string, amount float64, ref string) (float64, error)
}

func validAmount(amount float64) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidAmount, amount)
	}
	return nil
}

// NoopLedger accepts every debit and keeps no balance.
type NoopLedger struct{}

func NewNoopLedger() *NoopLedger {
	return &NoopLedger{}
}

func (NoopLedger) Balance(ctx context.Context, userID string) (float64, error) {
	return math.Inf(1), nil
}

func (NoopLedger) Debit(ctx context.Context, userID string, amount float64, ref string) (float64, error) {
	if err := validAmount(amount); err != nil {
		return 0, err
	}
	return math.Inf(1), nil
}

func (NoopLedger) Credit(ctx context.Context, userID string, amount float64, ref string) (float64, error) {
	if err := validAmount(amount); err != nil {
		return 0, err
	}
	return math.Inf(1), nil
}

// The balance check, the decrement and the ref marker happen in one script
// so concurrent debits can never overdraw.
var debitScript = redis.NewScript(`
	local balance = tonumber(redis.call('GET', KEYS[1])) or 0
	local amount = tonumber(ARGV[1])
	if #KEYS > 1 and redis.call('EXISTS', KEYS[2]) == 1 then
		return {'duplicate', tostring(balance)}
	end
	if balance < amount then
		return {'insufficient', tostring(balance)}
	end
	local updated = redis.call('INCRBYFLOAT', KEYS[1], -amount)
	if #KEYS > 1 then
		redis.call('SET', KEYS[2], '1', 'EX', ARGV[2])
	end
	return {'ok', updated}
`)

var creditScript = redis.NewScript(`
	if #KEYS > 1 and redis.call('EXISTS', KEYS[2]) == 1 then
		local balance = redis.call('GET', KEYS[1]) or '0'
		return {'duplicate', balance}
	end
	local updated = redis.call('INCRBYFLOAT', KEYS[1], ARGV[1])
	if #KEYS > 1 then
		redis.call('SET', KEYS[2], '1', 'EX', ARGV[2])
	end
	return {'ok', updated}
`)

// RedisLedger keeps balances in Redis under "credits:<user>".
type RedisLedger struct {
	redis  *redis.Client
	refTTL time.Duration
}

// NewRedisLedger creates a ledger that remembers refs for refTTL.
func NewRedisLedger(client *redis.Client, refTTL time.Duration) *RedisLedger {
	if refTTL <= 0 {
		refTTL = 24 * time.Hour
	}
	return &RedisLedger{redis: client, refTTL: refTTL}
}

func (l *RedisLedger) Balance(ctx context.Context, userID string) (float64, error) {
	val, err := l.redis.Get(ctx, l.balanceKey(userID)).Float64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return val, nil
}

func (l *RedisLedger) Debit(ctx context.Context, userID string, amount float64, ref string) (float64, error) {
	if err := validAmount(amount); err != nil {
		return 0, err
	}
	status, balance, err := l.run(ctx, debitScript, l.keys(userID, "debit", ref), amount)
	if err != nil {
		return 0, fmt.Errorf("failed to debit credits: %w", err)
	}
	if status == "insufficient" {
		return balance, fmt.Errorf("%w: balance %s, need %s", ErrInsufficientCredits,
			strconv.FormatFloat(balance, 'f', -1, 64), strconv.FormatFloat(amount, 'f', -1, 64))
	}
	return balance, nil
}

func (l *RedisLedger) Credit(ctx context.Context, userID string, amount float64, ref string) (float64, error) {
	if err := validAmount(amount); err != nil {
		return 0, err
	}
	_, balance, err := l.run(ctx, creditScript, l.keys(userID, "credit", ref), amount)
	if err != nil {
		return 0, fmt.Errorf("failed to credit credits: %w", err)
	}
	return balance, nil
}

func (l *RedisLedger) run(ctx context.Context, script *redis.Script, keys []string, amount float64) (string, float64, error) {
	res, err := script.Run(ctx, l.redis, keys, amount, int64(l.refTTL.Seconds())).StringSlice()
	if err != nil {
		return "", 0, err
	}
	if len(res) != 2 {
		return "", 0, fmt.Errorf("unexpected script result %v", res)
	}
	balance, err := strconv.ParseFloat(res[1], 64)
	if err != nil {
		return "", 0, fmt.Errorf("invalid balance %q: %w", res[1], err)
	}
	return res[0], balance, nil
}

func (l *RedisLedger) keys(userID, kind, ref string) []string {
	keys := []string{l.balanceKey(userID)}
	if ref != "" {
		keys = append(keys, fmt.Sprintf("credits:ref:%s:%s:%s", kind, userID, ref))
	}
	return keys
}

func (l *RedisLedger) balanceKey(userID string) string {
	return "credits:" + userID
}
