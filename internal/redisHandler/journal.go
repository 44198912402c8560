package redishandler

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/saxenaaman628/redis-election/internal/election"
	"github.com/saxenaaman628/redis-election/internal/models"
	rclient "github.com/saxenaaman628/redis-election/internal/redis"
)

var ErrConflict = errors.New("journal was appended concurrently")

// Journal keeps the event list of one election in redis, together with a
// projection of voters, proposals and workflow status that is updated in the
// same MULTI/EXEC as the event it derives from.
//
//	election:<id>                 hash  id, admin, workflow_status, winning_proposal_id, tallied, proposal_count
//	election:<id>:events          list  JSON events in commit order
//	election:<id>:voters          set   registered addresses
//	election:<id>:voter:<addr>    hash  is_registered, has_voted, voted_proposal_id
//	election:<id>:proposal:<n>    hash  description, vote_count
type Journal struct {
	rdb *redis.Client
	id  string
}

var _ election.Journal = (*Journal)(nil)

func NewJournal(rdb *redis.Client) *Journal {
	return &Journal{rdb: rdb}
}

// NewReader returns a journal over the projection of id. It is not bound, so
// it never creates the election header.
func NewReader(rdb *redis.Client, id string) *Journal {
	return &Journal{rdb: rdb, id: id}
}

func (j *Journal) metaKey() string {
	return "election:" + j.id
}

func (j *Journal) eventsKey() string {
	return j.metaKey() + ":events"
}

func (j *Journal) votersKey() string {
	return j.metaKey() + ":voters"
}

func (j *Journal) voterKey(a common.Address) string {
	return j.metaKey() + ":voter:" + strings.ToLower(a.Hex())
}

func (j *Journal) proposalKey(id uint64) string {
	return j.metaKey() + ":proposal:" + strconv.FormatUint(id, 10)
}

func (j *Journal) Bind(id string, admin common.Address) error {
	j.id = id

	ctx, cancel := context.WithTimeout(rclient.Ctx, rclient.Timeout)
	defer cancel()

	return j.rdb.Watch(ctx, func(tx *redis.Tx) error {
		meta, found, err := j.meta(ctx, tx)
		if err != nil {
			return err
		}
		if found {
			if !strings.EqualFold(meta.Admin, admin.Hex()) || meta.ID != id {
				return election.ErrJournalMismatch
			}
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, j.metaKey(), map[string]interface{}{
				"id":              id,
				"admin":           admin.Hex(),
				"workflow_status": uint8(models.RegisteringVoters),
				"tallied":         false,
				"proposal_count":  0,
				"created_at":      time.Now().UTC().Format(time.RFC3339),
			})
			return nil
		})
		return err
	}, j.metaKey())
}

func (j *Journal) Append(ev models.Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return errors.Wrap(err, "failed to encode event")
	}

	ctx, cancel := context.WithTimeout(rclient.Ctx, rclient.Timeout)
	defer cancel()

	err = j.rdb.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.LLen(ctx, j.eventsKey()).Result()
		if err != nil {
			return err
		}
		if uint64(n)+1 != ev.Seq {
			return ErrConflict
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.RPush(ctx, j.eventsKey(), b)
			j.project(ctx, pipe, ev)
			return nil
		})
		return err
	}, j.eventsKey())

	return errors.Wrapf(err, "failed to append event %d", ev.Seq)
}

func (j *Journal) project(ctx context.Context, pipe redis.Pipeliner, ev models.Event) {
	switch ev.Type {
	case models.EventVoterRegistered:
		pipe.SAdd(ctx, j.votersKey(), strings.ToLower(ev.VoterAddress.Hex()))
		pipe.HSet(ctx, j.voterKey(*ev.VoterAddress), map[string]interface{}{
			"is_registered":     true,
			"has_voted":         false,
			"voted_proposal_id": 0,
		})
	case models.EventProposalRegistered:
		pipe.HSet(ctx, j.proposalKey(*ev.ProposalID), map[string]interface{}{
			"description": ev.Description,
			"vote_count":  0,
		})
		pipe.HIncrBy(ctx, j.metaKey(), "proposal_count", 1)
	case models.EventVoted:
		pipe.HSet(ctx, j.voterKey(*ev.Voter), "has_voted", true, "voted_proposal_id", *ev.ProposalID)
		pipe.HIncrBy(ctx, j.proposalKey(*ev.ProposalID), "vote_count", 1)
	case models.EventWorkflowStatusChange:
		pipe.HSet(ctx, j.metaKey(), "workflow_status", uint8(*ev.NewStatus))
		if *ev.NewStatus == models.VotesTallied && ev.ProposalID != nil {
			pipe.HSet(ctx, j.metaKey(), "winning_proposal_id", *ev.ProposalID, "tallied", true)
		}
	}
}

func (j *Journal) Load() ([]models.Event, error) {
	ctx, cancel := context.WithTimeout(rclient.Ctx, rclient.Timeout)
	defer cancel()

	raw, err := j.rdb.LRange(ctx, j.eventsKey(), 0, -1).Result()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read events")
	}

	evs := make([]models.Event, len(raw))
	for i := range raw {
		if err := json.Unmarshal([]byte(raw[i]), &evs[i]); err != nil {
			return nil, errors.Wrapf(err, "failed to decode event at %d", i)
		}
	}

	return evs, nil
}

// Meta reads the election header.
func (j *Journal) Meta(ctx context.Context) (models.ElectionMeta, bool, error) {
	return j.meta(ctx, j.rdb)
}

type hashReader interface {
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
}

func (j *Journal) meta(ctx context.Context, c hashReader) (models.ElectionMeta, bool, error) {
	var meta models.ElectionMeta

	data, err := c.HGetAll(ctx, j.metaKey()).Result()
	if err != nil {
		return meta, false, errors.Wrap(err, "failed to read election meta")
	}
	if len(data) == 0 {
		return meta, false, nil
	}
	if err := mapstructure.WeakDecode(data, &meta); err != nil {
		return meta, false, errors.Wrap(err, "failed to decode election meta")
	}

	return meta, true, nil
}

// Voter reads the projected record of one address.
func (j *Journal) Voter(ctx context.Context, a common.Address) (models.Voter, bool, error) {
	var v models.Voter

	data, err := j.rdb.HGetAll(ctx, j.voterKey(a)).Result()
	if err != nil {
		return v, false, errors.Wrap(err, "failed to read voter")
	}
	if len(data) == 0 {
		return v, false, nil
	}
	if err := mapstructure.WeakDecode(data, &v); err != nil {
		return v, false, errors.Wrap(err, "failed to decode voter")
	}

	return v, true, nil
}

// Voters lists every registered address.
func (j *Journal) Voters(ctx context.Context) ([]common.Address, error) {
	members, err := j.rdb.SMembers(ctx, j.votersKey()).Result()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read voters")
	}

	as := make([]common.Address, len(members))
	for i := range members {
		as[i] = common.HexToAddress(members[i])
	}

	return as, nil
}

// Proposals reads the projected proposals in id order.
func (j *Journal) Proposals(ctx context.Context) ([]models.Proposal, error) {
	meta, found, err := j.Meta(ctx)
	if err != nil || !found {
		return nil, err
	}

	count, err := j.rdb.HGet(ctx, j.metaKey(), "proposal_count").Uint64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, errors.Wrapf(err, "failed to read proposal count of %s", meta.ID)
	}

	ps := make([]models.Proposal, count)
	for i := range ps {
		data, err := j.rdb.HGetAll(ctx, j.proposalKey(uint64(i))).Result()
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read proposal %d", i)
		}
		if err := mapstructure.WeakDecode(data, &ps[i]); err != nil {
			return nil, errors.Wrapf(err, "failed to decode proposal %d", i)
		}
	}

	return ps, nil
}

var ErrNoElection = errors.New("election not found")

// Snapshot is the projected state of one election.
type Snapshot struct {
	Meta      models.ElectionMeta     `json:"meta"`
	Voters    map[string]models.Voter `json:"voters"`
	Proposals []models.Proposal       `json:"proposals"`
}

// Snapshot reads the whole projection without touching the event list.
func (j *Journal) Snapshot(ctx context.Context) (Snapshot, error) {
	meta, found, err := j.Meta(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	if !found {
		return Snapshot{}, errors.Wrap(ErrNoElection, j.id)
	}

	as, err := j.Voters(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{Meta: meta, Voters: make(map[string]models.Voter, len(as))}
	for _, a := range as {
		v, _, err := j.Voter(ctx, a)
		if err != nil {
			return Snapshot{}, err
		}
		snap.Voters[a.Hex()] = v
	}

	if snap.Proposals, err = j.Proposals(ctx); err != nil {
		return Snapshot{}, err
	}

	return snap, nil
}
