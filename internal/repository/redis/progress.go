package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/bungogood/td-gammon/internal/model"
)

// ProgressChannel is the pub/sub channel carrying every duel report as JSON.
const ProgressChannel = "duel:reports"

func latestReportKey(player string) string { return "player:" + player + ":latest_report" }

// PublishReport stores r as the player's latest report and broadcasts it.
func (c *Client) PublishReport(ctx context.Context, r model.DuelReport) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	pipe := c.rdb.TxPipeline()
	pipe.Set(ctx, latestReportKey(r.Player), data, 0)
	pipe.Publish(ctx, ProgressChannel, data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish report: %w", err)
	}
	return nil
}

// LatestReport returns the last report published for player, or nil.
func (c *Client) LatestReport(ctx context.Context, player string) (*model.DuelReport, error) {
	data, err := c.rdb.Get(ctx, latestReportKey(player)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get latest report: %w", err)
	}
	var r model.DuelReport
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode latest report: %w", err)
	}
	return &r, nil
}

// SubscribeReports delivers published reports until ctx is cancelled.
// Malformed messages are skipped.
func (c *Client) SubscribeReports(ctx context.Context) (<-chan model.DuelReport, error) {
	sub := c.rdb.Subscribe(ctx, ProgressChannel)
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("subscribe reports: %w", err)
	}

	out := make(chan model.DuelReport)
	go func() {
		defer close(out)
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var r model.DuelReport
				if err := json.Unmarshal([]byte(msg.Payload), &r); err != nil {
					continue
				}
				select {
				case out <- r:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
