package testutil

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pratik-mahalle/ec2-automations/internal/domain/instance"
	"github.com/pratik-mahalle/ec2-automations/internal/domain/notification"
	"github.com/pratik-mahalle/ec2-automations/internal/domain/storage"
)

// MockCompute is an in-memory instance.Compute. Start and Stop move
// instances between running and stopped the way EC2 does, so repeated calls
// succeed without changing the final state.
type MockCompute struct {
	mu        sync.Mutex
	Instances map[string]*instance.Instance

	DescribeError error
	StartError    error
	StopError     error
	TagError      error

	DescribeCalls []string
	StartCalls    [][]string
	StopCalls     [][]string
	TagCalls      []TagCall
}

// TagCall records one Tag invocation
type TagCall struct {
	IDs  []string
	Tags []instance.Tag
}

func NewMockCompute(instances ...*instance.Instance) *MockCompute {
	m := &MockCompute{Instances: make(map[string]*instance.Instance)}
	for _, inst := range instances {
		m.Instances[inst.ID] = inst
	}
	return m
}

// NewTaggedInstance builds an instance carrying the given key/value pairs
func NewTaggedInstance(id, state string, kv ...string) *instance.Instance {
	inst := &instance.Instance{ID: id, State: state}
	for i := 0; i+1 < len(kv); i += 2 {
		inst.Tags = append(inst.Tags, instance.Tag{Key: kv[i], Value: kv[i+1]})
	}
	return inst
}

func (m *MockCompute) Describe(ctx context.Context, id string) (*instance.Instance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.DescribeCalls = append(m.DescribeCalls, id)
	if m.DescribeError != nil {
		return nil, m.DescribeError
	}
	inst, ok := m.Instances[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", instance.ErrNotFound, id)
	}
	cp := *inst
	return &cp, nil
}

func (m *MockCompute) DescribeByTag(ctx context.Context, key string, values []string) ([]*instance.Instance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.DescribeError != nil {
		return nil, m.DescribeError
	}

	ids := make([]string, 0, len(m.Instances))
	for id := range m.Instances {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out []*instance.Instance
	for _, id := range ids {
		inst := m.Instances[id]
		if inst.State == "terminated" || inst.State == "shutting-down" {
			continue
		}
		if matchesAny(inst.TagValues(key), values) {
			cp := *inst
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockCompute) Start(ctx context.Context, ids []string) (instance.BatchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.StartCalls = append(m.StartCalls, append([]string(nil), ids...))
	return m.transition(ids, "running", m.StartError)
}

func (m *MockCompute) Stop(ctx context.Context, ids []string) (instance.BatchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.StopCalls = append(m.StopCalls, append([]string(nil), ids...))
	return m.transition(ids, "stopped", m.StopError)
}

func (m *MockCompute) Tag(ctx context.Context, ids []string, tags []instance.Tag) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.TagCalls = append(m.TagCalls, TagCall{IDs: append([]string(nil), ids...), Tags: append([]instance.Tag(nil), tags...)})
	if m.TagError != nil {
		return m.TagError
	}

	for _, id := range ids {
		inst, ok := m.Instances[id]
		if !ok {
			return fmt.Errorf("%w: %s", instance.ErrNotFound, id)
		}
		for _, t := range tags {
			inst.Tags = setTag(inst.Tags, t)
		}
	}
	return nil
}

// State returns the current state of id, or "" when unknown
func (m *MockCompute) State(id string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if inst, ok := m.Instances[id]; ok {
		return inst.State
	}
	return ""
}

func (m *MockCompute) transition(ids []string, to string, failure error) (instance.BatchResult, error) {
	if failure != nil {
		return instance.FailAll(ids, failure.Error()), failure
	}
	for _, id := range ids {
		if _, ok := m.Instances[id]; !ok {
			err := fmt.Errorf("%w: %s", instance.ErrNotFound, id)
			return instance.FailAll(ids, err.Error()), err
		}
	}

	res := instance.BatchResult{Attempted: append([]string(nil), ids...)}
	for _, id := range ids {
		m.Instances[id].State = to
		res.Succeeded = append(res.Succeeded, id)
	}
	return res, nil
}

func setTag(tags []instance.Tag, tag instance.Tag) []instance.Tag {
	for i := range tags {
		if tags[i].Key == tag.Key {
			tags[i].Value = tag.Value
			return tags
		}
	}
	return append(tags, tag)
}

func matchesAny(have, want []string) bool {
	for _, h := range have {
		for _, w := range want {
			if h == w {
				return true
			}
		}
	}
	return false
}

// MockStore is an in-memory storage.Store keyed by bucket then key
type MockStore struct {
	mu      sync.Mutex
	Objects map[string]map[string]*StoredObject

	ListError   error
	PutError    error
	DeleteError map[string]error

	ListCalls   int
	PutCalls    []string
	DeleteCalls []string
}

// StoredObject is an object held by MockStore
type StoredObject struct {
	Body         []byte
	ContentType  string
	LastModified time.Time
}

func NewMockStore() *MockStore {
	return &MockStore{
		Objects:     make(map[string]map[string]*StoredObject),
		DeleteError: make(map[string]error),
	}
}

// Seed adds an object without recording a Put
func (m *MockStore) Seed(bucket, key string, lastModified time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.bucket(bucket)[key] = &StoredObject{LastModified: lastModified}
}

// Get returns the stored object, or nil
func (m *MockStore) Get(bucket, key string) *StoredObject {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.Objects[bucket][key]
}

// Keys returns the sorted keys held in bucket
func (m *MockStore) Keys(bucket string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys := make([]string, 0, len(m.Objects[bucket]))
	for k := range m.Objects[bucket] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (m *MockStore) List(ctx context.Context, bucket, prefix string) ([]storage.Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ListCalls++
	if m.ListError != nil {
		return nil, m.ListError
	}

	keys := make([]string, 0, len(m.Objects[bucket]))
	for k := range m.Objects[bucket] {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	out := make([]storage.Object, 0, len(keys))
	for _, k := range keys {
		obj := m.Objects[bucket][k]
		out = append(out, storage.Object{Key: k, LastModified: obj.LastModified, Size: int64(len(obj.Body))})
	}
	return out, nil
}

func (m *MockStore) Put(ctx context.Context, bucket, key string, body []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.PutCalls = append(m.PutCalls, bucket+"/"+key)
	if m.PutError != nil {
		return m.PutError
	}
	m.bucket(bucket)[key] = &StoredObject{
		Body:         append([]byte(nil), body...),
		ContentType:  contentType,
		LastModified: time.Now(),
	}
	return nil
}

func (m *MockStore) Delete(ctx context.Context, bucket, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.DeleteCalls = append(m.DeleteCalls, key)
	if err := m.DeleteError[key]; err != nil {
		return err
	}
	delete(m.Objects[bucket], key)
	return nil
}

func (m *MockStore) bucket(name string) map[string]*StoredObject {
	b, ok := m.Objects[name]
	if !ok {
		b = make(map[string]*StoredObject)
		m.Objects[name] = b
	}
	return b
}

// MockPublisher is an in-memory notification.Publisher
type MockPublisher struct {
	mu           sync.Mutex
	Messages     []notification.Message
	PublishError error
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) Publish(ctx context.Context, msg notification.Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.PublishError != nil {
		return "", m.PublishError
	}
	m.Messages = append(m.Messages, msg)
	return fmt.Sprintf("msg-%d", len(m.Messages)), nil
}
