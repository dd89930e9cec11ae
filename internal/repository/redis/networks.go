package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bungogood/td-gammon/internal/model"
	"github.com/bungogood/td-gammon/internal/valuenet"
)

// Key patterns for network snapshots.
func networkKey(run string, episode int) string { return "run:" + run + ":net:" + strconv.Itoa(episode) }
func episodesKey(run string) string             { return "run:" + run + ":episodes" }

// SetNetwork stores a serialized network and indexes its episode.
func (c *Client) SetNetwork(ctx context.Context, run string, episode int, data []byte) error {
	pipe := c.rdb.TxPipeline()
	pipe.Set(ctx, networkKey(run, episode), data, 0)
	pipe.ZAdd(ctx, episodesKey(run), redis.Z{Score: float64(episode), Member: episode})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("set network: %w", err)
	}
	return nil
}

// GetNetwork returns a serialized network, or nil if none was stored.
func (c *Client) GetNetwork(ctx context.Context, run string, episode int) ([]byte, error) {
	data, err := c.rdb.Get(ctx, networkKey(run, episode)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get network: %w", err)
	}
	return data, nil
}

// LatestEpisode returns the highest stored episode for run.
func (c *Client) LatestEpisode(ctx context.Context, run string) (int, bool, error) {
	members, err := c.rdb.ZRevRange(ctx, episodesKey(run), 0, 0).Result()
	if err != nil {
		return 0, false, fmt.Errorf("latest episode: %w", err)
	}
	if len(members) == 0 {
		return 0, false, nil
	}
	ep, err := strconv.Atoi(members[0])
	if err != nil {
		return 0, false, fmt.Errorf("latest episode: bad member %q", members[0])
	}
	return ep, true, nil
}

// SaveCheckpoint stores net as a snapshot so the trainer can use Redis as a
// checkpoint store.
func (c *Client) SaveCheckpoint(ctx context.Context, run string, episode int, net *valuenet.Network) (*model.Checkpoint, error) {
	data, err := net.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("marshal network: %w", err)
	}
	if err := c.SetNetwork(ctx, run, episode, data); err != nil {
		return nil, err
	}
	return &model.Checkpoint{Episode: episode, Location: networkKey(run, episode), Size: len(data), CreatedAt: time.Now().UTC()}, nil
}

// LoadNetwork decodes the snapshot for episode, or returns nil if none was stored.
func (c *Client) LoadNetwork(ctx context.Context, run string, episode int) (*valuenet.Network, error) {
	data, err := c.GetNetwork(ctx, run, episode)
	if err != nil || data == nil {
		return nil, err
	}
	var net valuenet.Network
	if err := net.UnmarshalBinary(data); err != nil {
		return nil, fmt.Errorf("decode network %s: %w", networkKey(run, episode), err)
	}
	return &net, nil
}
