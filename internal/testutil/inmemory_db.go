package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/stakevault/nft-staking-service/internal/db"
	"github.com/stakevault/nft-staking-service/internal/db/model"
)

// InMemoryDB implements db.DBClient against plain maps for hermetic tests.
// It mimics the real client's semantics where they matter: deletes run
// before upserts, events are keyed by sequence number, the watermark only
// moves forward, and pagination uses the real token codec.
type InMemoryDB struct {
	mu sync.Mutex

	State   *model.LedgerStateDocument
	Records map[uint64]*model.StakeRecordDocument
	Events  []*model.EventDocument

	// PageLimit caps page sizes like cfg.Db.MaxPaginationLimit does. Zero
	// means everything fits in one page.
	PageLimit int

	PingErr error
	// FailNextWrite makes the next write call fail once, leaving the store
	// untouched.
	FailNextWrite error

	SaveCalls int
}

func NewInMemoryDB() *InMemoryDB {
	return &InMemoryDB{
		Records: make(map[uint64]*model.StakeRecordDocument),
	}
}

func (m *InMemoryDB) Ping(_ context.Context) error {
	return m.PingErr
}

func (m *InMemoryDB) SaveStakerRecords(
	_ context.Context,
	records []*model.StakeRecordDocument,
	removedTokenIDs []uint64,
	events []*model.EventDocument,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SaveCalls++
	if err := m.takeWriteFailure(); err != nil {
		return err
	}
	for _, tokenID := range removedTokenIDs {
		delete(m.Records, tokenID)
	}
	for _, record := range records {
		copied := *record
		m.Records[record.TokenID] = &copied
	}
	return m.appendEvents(events)
}

func (m *InMemoryDB) FindStakeRecordByTokenID(_ context.Context, tokenID uint64) (*model.StakeRecordDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.Records[tokenID]
	if !ok {
		return nil, &db.NotFoundError{Key: "token", Message: "Stake record not found"}
	}
	copied := *record
	return &copied, nil
}

func (m *InMemoryDB) FindStakeRecordsByStaker(
	_ context.Context, stakerAddress string, paginationToken string,
) (*db.DbResultMap[model.StakeRecordDocument], error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	afterTokenID := uint64(0)
	if paginationToken != "" {
		decoded, err := model.DecodePaginationToken[model.TokenByStakerPagination](paginationToken)
		if err != nil {
			return nil, &db.InvalidPaginationTokenError{Message: "Invalid pagination token"}
		}
		afterTokenID = decoded.TokenID
	}

	var matched []model.StakeRecordDocument
	for _, record := range m.Records {
		if record.OwnerAddress != stakerAddress {
			continue
		}
		if paginationToken != "" && record.TokenID <= afterTokenID {
			continue
		}
		matched = append(matched, *record)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].TokenID < matched[j].TokenID })

	page, hasMore := m.page(len(matched))
	matched = matched[:page]
	token := ""
	if hasMore {
		var err error
		token, err = model.BuildTokenByStakerPaginationToken(matched[len(matched)-1])
		if err != nil {
			return nil, err
		}
	}
	return &db.DbResultMap[model.StakeRecordDocument]{Data: matched, PaginationToken: token}, nil
}

func (m *InMemoryDB) FindAllStakeRecords(_ context.Context) ([]model.StakeRecordDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	records := make([]model.StakeRecordDocument, 0, len(m.Records))
	for _, record := range m.Records {
		records = append(records, *record)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].TokenID < records[j].TokenID })
	return records, nil
}

func (m *InMemoryDB) GetOrInitLedgerState(_ context.Context, initialRate string) (*model.LedgerStateDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.State == nil {
		m.State = model.NewLedgerStateDocument(initialRate, false, 0, time.Now().Unix())
	}
	copied := *m.State
	return &copied, nil
}

func (m *InMemoryDB) UpdateLedgerRewardRate(_ context.Context, rewardRate string, events []*model.EventDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.takeWriteFailure(); err != nil {
		return err
	}
	if m.State == nil {
		return &db.NotFoundError{Key: model.LedgerStateId, Message: "ledger state document does not exist"}
	}
	m.State.RewardRate = rewardRate
	m.State.UpdatedAt = time.Now().Unix()
	return m.appendEvents(events)
}

func (m *InMemoryDB) UpdateLedgerPaused(_ context.Context, paused bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.takeWriteFailure(); err != nil {
		return err
	}
	if m.State == nil {
		return &db.NotFoundError{Key: model.LedgerStateId, Message: "ledger state document does not exist"}
	}
	m.State.Paused = paused
	m.State.UpdatedAt = time.Now().Unix()
	return nil
}

func (m *InMemoryDB) FindEvents(
	_ context.Context, stakerAddress string, eventTypes []string, paginationToken string,
) (*db.DbResultMap[model.EventDocument], error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	afterSeq := uint64(0)
	if paginationToken != "" {
		decoded, err := model.DecodePaginationToken[model.EventBySeqPagination](paginationToken)
		if err != nil {
			return nil, &db.InvalidPaginationTokenError{Message: "Invalid pagination token"}
		}
		afterSeq = decoded.Seq
	}

	wantedTypes := make(map[string]struct{}, len(eventTypes))
	for _, eventType := range eventTypes {
		wantedTypes[eventType] = struct{}{}
	}

	var matched []model.EventDocument
	for _, event := range m.Events {
		if stakerAddress != "" && event.StakerAddress != stakerAddress {
			continue
		}
		if len(wantedTypes) > 0 {
			if _, ok := wantedTypes[event.EventType]; !ok {
				continue
			}
		}
		if paginationToken != "" && event.Seq <= afterSeq {
			continue
		}
		matched = append(matched, *event)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Seq < matched[j].Seq })

	page, hasMore := m.page(len(matched))
	matched = matched[:page]
	token := ""
	if hasMore {
		var err error
		token, err = model.BuildEventBySeqPaginationToken(matched[len(matched)-1])
		if err != nil {
			return nil, err
		}
	}
	return &db.DbResultMap[model.EventDocument]{Data: matched, PaginationToken: token}, nil
}

// LastEventSeq reads the persisted watermark.
func (m *InMemoryDB) LastEventSeq() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.State == nil {
		return 0
	}
	return m.State.LastEventSeq
}

func (m *InMemoryDB) takeWriteFailure() error {
	if m.FailNextWrite == nil {
		return nil
	}
	err := m.FailNextWrite
	m.FailNextWrite = nil
	return err
}

func (m *InMemoryDB) appendEvents(events []*model.EventDocument) error {
	if len(events) == 0 {
		return nil
	}
	if m.State == nil {
		return &db.NotFoundError{Key: model.LedgerStateId, Message: "ledger state document does not exist"}
	}
	seen := make(map[uint64]struct{}, len(m.Events))
	for _, existing := range m.Events {
		seen[existing.Seq] = struct{}{}
	}
	for _, event := range events {
		if _, dup := seen[event.Seq]; dup {
			return &db.DuplicateKeyError{Key: "seq", Message: "event sequence already archived"}
		}
		copied := *event
		m.Events = append(m.Events, &copied)
		if event.Seq > m.State.LastEventSeq {
			m.State.LastEventSeq = event.Seq
		}
	}
	return nil
}

// page mirrors the real client: the page is cut at PageLimit and a token is
// handed out whenever the page is full, even if no further rows exist yet.
func (m *InMemoryDB) page(matched int) (int, bool) {
	if m.PageLimit <= 0 {
		return matched, false
	}
	page := matched
	if page > m.PageLimit {
		page = m.PageLimit
	}
	return page, page == m.PageLimit
}
