package persistence

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/go-zookeeper/zk"

	"github.com/mohsanabbas/firehose/internal/offsetmap"
	"github.com/mohsanabbas/firehose/internal/spouterr"
	"github.com/mohsanabbas/firehose/internal/trigger"
)

// ZK is the ZooKeeper-backed Manager named in spec §1/§6, grounded in
// ZookeeperPersistenceManagerTest: Offset Maps live under
// {root}/consumers/{consumerId}, sideline request records under
// {root}/requests/{requestId}, both as JSON blobs.
type ZK struct {
	cfg  Config
	mu   sync.Mutex
	conn *zk.Conn
}

// NewZK returns an unopened ZooKeeper-backed Manager.
func NewZK(cfg Config) *ZK {
	return &ZK{cfg: cfg}
}

func (z *ZK) Open() error {
	if err := z.cfg.validate(); err != nil {
		return err
	}

	conn, _, err := zk.Connect(z.cfg.ZKServers, z.cfg.DialTimeout)
	if err != nil {
		return spouterr.WrapPersistence("connect to zookeeper", err)
	}

	z.mu.Lock()
	z.conn = conn
	z.mu.Unlock()

	return z.ensurePath(z.cfg.ZKRoot)
}

func (z *ZK) guard() (*zk.Conn, error) {
	z.mu.Lock()
	defer z.mu.Unlock()
	if z.conn == nil {
		return nil, spouterr.NewIllegalState("persistence manager used before open")
	}
	return z.conn, nil
}

func (z *ZK) consumerPath(consumerID string) string {
	return z.cfg.ZKRoot + "/consumers/" + consumerID
}

func (z *ZK) requestPath(id trigger.ID) string {
	return z.cfg.ZKRoot + "/requests/" + string(id)
}

func (z *ZK) PersistConsumerState(consumerID string, state offsetmap.OffsetMap) error {
	conn, err := z.guard()
	if err != nil {
		return err
	}
	data, err := json.Marshal(state.ToJSON())
	if err != nil {
		return spouterr.WrapPersistence("marshal consumer state", err)
	}
	return z.writeNode(conn, z.consumerPath(consumerID), data)
}

func (z *ZK) RetrieveConsumerState(consumerID string) (offsetmap.OffsetMap, bool, error) {
	conn, err := z.guard()
	if err != nil {
		return offsetmap.OffsetMap{}, false, err
	}
	data, found, err := z.readNode(conn, z.consumerPath(consumerID))
	if err != nil || !found {
		return offsetmap.OffsetMap{}, false, err
	}

	var wire map[string]int64
	if err := json.Unmarshal(data, &wire); err != nil {
		return offsetmap.OffsetMap{}, false, spouterr.WrapPersistence("unmarshal consumer state", err)
	}
	state, err := offsetmap.FromJSON(wire)
	if err != nil {
		return offsetmap.OffsetMap{}, false, spouterr.WrapPersistence("decode consumer state", err)
	}
	return state, true, nil
}

func (z *ZK) ClearConsumerState(consumerID string) error {
	conn, err := z.guard()
	if err != nil {
		return err
	}
	return z.deleteNode(conn, z.consumerPath(consumerID))
}

// requestWire is the on-disk shape for a sideline request record. Offset
// maps are flattened to the same "{topic}-{partition}" -> offset form
// ToJSON produces for consumer state.
type requestWire struct {
	Type            trigger.Type            `json:"type"`
	FilterSteps     []trigger.FilterStepSpec `json:"filterSteps"`
	StartingOffsets map[string]int64        `json:"startingState,omitempty"`
	EndingOffsets   map[string]int64        `json:"endingState,omitempty"`
}

func (z *ZK) PersistSidelineRequestState(req trigger.Request) error {
	conn, err := z.guard()
	if err != nil {
		return err
	}

	wire := requestWire{Type: req.Type, FilterSteps: req.FilterSteps}
	if req.StartingOffsets != nil {
		wire.StartingOffsets = req.StartingOffsets.ToJSON()
	}
	if req.EndingOffsets != nil {
		wire.EndingOffsets = req.EndingOffsets.ToJSON()
	}

	data, err := json.Marshal(wire)
	if err != nil {
		return spouterr.WrapPersistence("marshal sideline request", err)
	}
	return z.writeNode(conn, z.requestPath(req.ID), data)
}

func (z *ZK) RetrieveSidelineRequest(id trigger.ID) (trigger.Request, bool, error) {
	conn, err := z.guard()
	if err != nil {
		return trigger.Request{}, false, err
	}
	data, found, err := z.readNode(conn, z.requestPath(id))
	if err != nil || !found {
		return trigger.Request{}, false, err
	}

	var wire requestWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return trigger.Request{}, false, spouterr.WrapPersistence("unmarshal sideline request", err)
	}

	req := trigger.Request{ID: id, Type: wire.Type, FilterSteps: wire.FilterSteps}
	if wire.StartingOffsets != nil {
		m, err := offsetmap.FromJSON(wire.StartingOffsets)
		if err != nil {
			return trigger.Request{}, false, spouterr.WrapPersistence("decode starting offsets", err)
		}
		req.StartingOffsets = &m
	}
	if wire.EndingOffsets != nil {
		m, err := offsetmap.FromJSON(wire.EndingOffsets)
		if err != nil {
			return trigger.Request{}, false, spouterr.WrapPersistence("decode ending offsets", err)
		}
		req.EndingOffsets = &m
	}
	return req, true, nil
}

func (z *ZK) ClearSidelineRequest(id trigger.ID) error {
	conn, err := z.guard()
	if err != nil {
		return err
	}
	return z.deleteNode(conn, z.requestPath(id))
}

func (z *ZK) ListSidelineRequestIDs() ([]trigger.ID, error) {
	conn, err := z.guard()
	if err != nil {
		return nil, err
	}
	requestsRoot := z.cfg.ZKRoot + "/requests"

	exists, _, err := conn.Exists(requestsRoot)
	if err != nil {
		return nil, spouterr.WrapPersistence("check existence of "+requestsRoot, err)
	}
	if !exists {
		return nil, nil
	}

	children, _, err := conn.Children(requestsRoot)
	if err != nil {
		return nil, spouterr.WrapPersistence("list children of "+requestsRoot, err)
	}

	ids := make([]trigger.ID, 0, len(children))
	for _, c := range children {
		ids = append(ids, trigger.ID(c))
	}
	return ids, nil
}

func (z *ZK) Close() error {
	z.mu.Lock()
	defer z.mu.Unlock()
	if z.conn != nil {
		z.conn.Close()
		z.conn = nil
	}
	return nil
}

// writeNode creates the node (and any missing ancestors) if absent,
// otherwise sets it in place. Matching ZookeeperPersistenceManagerTest's
// "update an existing entry" scenario.
func (z *ZK) writeNode(conn *zk.Conn, path string, data []byte) error {
	exists, stat, err := conn.Exists(path)
	if err != nil {
		return spouterr.WrapPersistence("check existence of "+path, err)
	}
	if !exists {
		if err := z.ensurePath(parentOf(path)); err != nil {
			return err
		}
		if _, err := conn.Create(path, data, 0, zk.WorldACL(zk.PermAll)); err != nil {
			return spouterr.WrapPersistence("create "+path, err)
		}
		return nil
	}
	if _, err := conn.Set(path, data, stat.Version); err != nil {
		return spouterr.WrapPersistence("update "+path, err)
	}
	return nil
}

func (z *ZK) readNode(conn *zk.Conn, path string) ([]byte, bool, error) {
	exists, _, err := conn.Exists(path)
	if err != nil {
		return nil, false, spouterr.WrapPersistence("check existence of "+path, err)
	}
	if !exists {
		return nil, false, nil
	}
	data, _, err := conn.Get(path)
	if err != nil {
		return nil, false, spouterr.WrapPersistence("read "+path, err)
	}
	return data, true, nil
}

func (z *ZK) deleteNode(conn *zk.Conn, path string) error {
	exists, stat, err := conn.Exists(path)
	if err != nil {
		return spouterr.WrapPersistence("check existence of "+path, err)
	}
	if !exists {
		return nil
	}
	if err := conn.Delete(path, stat.Version); err != nil && err != zk.ErrNoNode {
		return spouterr.WrapPersistence("delete "+path, err)
	}
	return nil
}

// ensurePath creates path and every missing ancestor as a persistent,
// empty znode. ZooKeeper requires parents to exist before a child can be
// created.
func (z *ZK) ensurePath(path string) error {
	conn, err := z.guard()
	if err != nil {
		return err
	}

	segments := strings.Split(strings.Trim(path, "/"), "/")
	cur := ""
	for _, seg := range segments {
		if seg == "" {
			continue
		}
		cur += "/" + seg
		exists, _, err := conn.Exists(cur)
		if err != nil {
			return spouterr.WrapPersistence("check existence of "+cur, err)
		}
		if exists {
			continue
		}
		if _, err := conn.Create(cur, nil, 0, zk.WorldACL(zk.PermAll)); err != nil && err != zk.ErrNodeExists {
			return spouterr.WrapPersistence("create "+cur, err)
		}
	}
	return nil
}

func parentOf(path string) string {
	i := strings.LastIndex(path, "/")
	if i <= 0 {
		return "/"
	}
	return path[:i]
}
