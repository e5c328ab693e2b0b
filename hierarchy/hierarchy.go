// Copyright 2018 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package hierarchy holds the patient, study and series tree that loaded DICOM objects are filed
// under. Items live in an arena and are addressed by integer IDs; each item may carry UIDs in
// several namespaces, string attributes and a link to the scene entity it represents.
package hierarchy

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/GoogleCloudPlatform/go-dicom-rt/scene"
)

// ErrUIDInUse is returned when a UID is already assigned to another item in the same namespace.
var ErrUIDInUse = errors.New("UID already assigned to another item")

// ItemID identifies an item within a hierarchy.
type ItemID int64

// InvalidItemID is returned by lookups that find nothing.
const InvalidItemID ItemID = 0

// Level is the position of an item in the patient/study/series tree.
type Level string

// Levels of the tree.
const (
	LevelScene   Level = "Scene"
	LevelPatient Level = "Patient"
	LevelStudy   Level = "Study"
	LevelSeries  Level = "Series"
	LevelFolder  Level = "Folder"
)

// EventType tells what changed in the hierarchy.
type EventType int

const (
	// ItemAdded is sent after an item is created.
	ItemAdded EventType = iota
	// ItemModified is sent after the name, parent or entity of an item changes.
	ItemModified
	// AttributeModified is sent after an attribute is set to a new value.
	AttributeModified
	// BatchProcessed is sent once when the outermost batch ends, if anything changed in it.
	BatchProcessed
)

// Event describes a single change.
type Event struct {
	Type EventType
	Item ItemID
	// Key is the attribute name for AttributeModified events.
	Key string
}

// Listener receives change events.
type Listener func(Event)

// NameOptions controls how patient and study labels are built from their identity attributes.
type NameOptions struct {
	DisplayPatientID        bool
	DisplayPatientBirthDate bool
	DisplayStudyID          bool
	DisplayStudyDate        bool
}

// Option configures a Hierarchy.
type Option func(*Hierarchy)

// WithLogger overrides the logger used by the hierarchy.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Hierarchy) {
		h.Logger = logger
	}
}

// WithNameOptions sets the label augmentation of patient and study items.
func WithNameOptions(o NameOptions) Option {
	return func(h *Hierarchy) {
		h.names = o
	}
}

// WithListener registers a change listener.
func WithListener(l Listener) Option {
	return func(h *Hierarchy) {
		h.listeners = append(h.listeners, l)
	}
}

type item struct {
	name       string
	level      Level
	parent     ItemID
	children   []ItemID
	attributes map[string]string
	uids       map[string][]string
	entity     scene.ID
}

// Hierarchy is the item tree of one scene. It is not safe for concurrent use.
type Hierarchy struct {
	Logger *slog.Logger

	items    map[ItemID]*item
	next     ItemID
	root     ItemID
	uidIndex map[string]map[string]ItemID
	byEntity map[scene.ID]ItemID

	names      NameOptions
	listeners  []Listener
	batchDepth int
	changed    bool
}

// New returns a hierarchy holding only the scene item.
func New(opts ...Option) *Hierarchy {
	h := &Hierarchy{
		items:    map[ItemID]*item{},
		uidIndex: map[string]map[string]ItemID{},
		byEntity: map[scene.ID]ItemID{},
	}
	for _, opt := range opts {
		opt(h)
	}
	h.next++
	h.root = h.next
	h.items[h.root] = &item{name: "Scene", level: LevelScene}
	return h
}

func (h *Hierarchy) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// AddListener registers a change listener.
func (h *Hierarchy) AddListener(l Listener) {
	h.listeners = append(h.listeners, l)
}

func (h *Hierarchy) emit(e Event) {
	if h.batchDepth > 0 {
		h.changed = true
		return
	}
	for _, l := range h.listeners {
		l(e)
	}
}

// StartBatch suppresses change events until the matching EndBatch. Batches nest.
func (h *Hierarchy) StartBatch() {
	h.batchDepth++
}

// EndBatch closes a batch. When the outermost batch closes and anything changed inside it, a
// single BatchProcessed event is sent.
func (h *Hierarchy) EndBatch() {
	if h.batchDepth == 0 {
		return
	}
	h.batchDepth--
	if h.batchDepth == 0 && h.changed {
		h.changed = false
		h.emit(Event{Type: BatchProcessed, Item: InvalidItemID})
	}
}

// InBatch reports whether a batch is open.
func (h *Hierarchy) InBatch() bool {
	return h.batchDepth > 0
}

// SceneItem is the root of the tree.
func (h *Hierarchy) SceneItem() ItemID {
	return h.root
}

// Exists reports whether id names an item.
func (h *Hierarchy) Exists(id ItemID) bool {
	_, ok := h.items[id]
	return ok
}

// Len is the number of items, including the scene item.
func (h *Hierarchy) Len() int {
	return len(h.items)
}

// CreateItem adds an item under parent and returns its ID. It returns InvalidItemID when parent
// does not exist.
func (h *Hierarchy) CreateItem(parent ItemID, name string, level Level) ItemID {
	p, ok := h.items[parent]
	if !ok {
		h.logger().Error("Cannot create item under missing parent", "op", "CreateItem", "parent", parent, "name", name)
		return InvalidItemID
	}
	h.next++
	id := h.next
	h.items[id] = &item{name: name, level: level, parent: parent}
	p.children = append(p.children, id)
	h.emit(Event{Type: ItemAdded, Item: id})
	return id
}

// Name returns the display name of an item.
func (h *Hierarchy) Name(id ItemID) string {
	if it, ok := h.items[id]; ok {
		return it.name
	}
	return ""
}

// SetName changes the display name of an item.
func (h *Hierarchy) SetName(id ItemID, name string) {
	it, ok := h.items[id]
	if !ok || it.name == name {
		return
	}
	it.name = name
	h.emit(Event{Type: ItemModified, Item: id})
}

// Level returns the level of an item.
func (h *Hierarchy) Level(id ItemID) Level {
	if it, ok := h.items[id]; ok {
		return it.level
	}
	return ""
}

// Parent returns the parent of an item, or InvalidItemID for the scene item.
func (h *Hierarchy) Parent(id ItemID) ItemID {
	if it, ok := h.items[id]; ok {
		return it.parent
	}
	return InvalidItemID
}

// SetParent moves an item under a new parent.
func (h *Hierarchy) SetParent(id, parent ItemID) error {
	it, ok := h.items[id]
	if !ok || id == h.root {
		return fmt.Errorf("cannot reparent item %d", id)
	}
	p, ok := h.items[parent]
	if !ok {
		return fmt.Errorf("parent item %d does not exist", parent)
	}
	for a := parent; a != InvalidItemID; a = h.items[a].parent {
		if a == id {
			return fmt.Errorf("item %d cannot be moved under its own descendant %d", id, parent)
		}
	}
	if it.parent == parent {
		return nil
	}
	if old, ok := h.items[it.parent]; ok {
		old.children = removeID(old.children, id)
	}
	it.parent = parent
	p.children = append(p.children, id)
	h.emit(Event{Type: ItemModified, Item: id})
	return nil
}

func removeID(ids []ItemID, id ItemID) []ItemID {
	for i, c := range ids {
		if c == id {
			return append(ids[:i:i], ids[i+1:]...)
		}
	}
	return ids
}

// Children returns the direct children of an item in creation order.
func (h *Hierarchy) Children(id ItemID) []ItemID {
	it, ok := h.items[id]
	if !ok {
		return nil
	}
	return append([]ItemID(nil), it.children...)
}

// Descendants returns all items below id, depth first in creation order.
func (h *Hierarchy) Descendants(id ItemID) []ItemID {
	var out []ItemID
	var visit func(ItemID)
	visit = func(p ItemID) {
		for _, c := range h.items[p].children {
			out = append(out, c)
			visit(c)
		}
	}
	if _, ok := h.items[id]; ok {
		visit(id)
	}
	return out
}

// AncestorAtLevel returns the closest ancestor of id (or id itself) at the given level.
func (h *Hierarchy) AncestorAtLevel(id ItemID, level Level) ItemID {
	for a := id; a != InvalidItemID; {
		it, ok := h.items[a]
		if !ok {
			break
		}
		if it.level == level {
			return a
		}
		a = it.parent
	}
	return InvalidItemID
}

// RemoveItem deletes an item and its descendants, dropping their UIDs from the index.
func (h *Hierarchy) RemoveItem(id ItemID) {
	it, ok := h.items[id]
	if !ok || id == h.root {
		return
	}
	for _, d := range append(h.Descendants(id), id) {
		h.unindex(d)
	}
	if p, ok := h.items[it.parent]; ok {
		p.children = removeID(p.children, id)
	}
	h.emit(Event{Type: ItemModified, Item: it.parent})
}

func (h *Hierarchy) unindex(id ItemID) {
	it := h.items[id]
	for ns, uids := range it.uids {
		for _, uid := range uids {
			if h.uidIndex[ns][uid] == id {
				delete(h.uidIndex[ns], uid)
			}
		}
	}
	if it.entity != scene.InvalidID && h.byEntity[it.entity] == id {
		delete(h.byEntity, it.entity)
	}
	delete(h.items, id)
}

// SetUID assigns a single UID to an item in a namespace, replacing the UIDs it had there.
func (h *Hierarchy) SetUID(id ItemID, namespace, uid string) error {
	return h.SetUIDs(id, namespace, []string{uid})
}

// SetUIDs assigns a list of UIDs to an item in a namespace. Every UID of the list is indexed, so
// FindByUID finds the item under any of them. No UID is assigned when one is held by another item.
func (h *Hierarchy) SetUIDs(id ItemID, namespace string, uids []string) error {
	it, ok := h.items[id]
	if !ok {
		return fmt.Errorf("item %d does not exist", id)
	}
	index := h.uidIndex[namespace]
	if index == nil {
		index = map[string]ItemID{}
		h.uidIndex[namespace] = index
	}
	for _, uid := range uids {
		if owner, ok := index[uid]; ok && owner != id {
			return fmt.Errorf("%s UID %q of item %d: %w", namespace, uid, owner, ErrUIDInUse)
		}
	}
	for _, old := range it.uids[namespace] {
		if index[old] == id {
			delete(index, old)
		}
	}
	if it.uids == nil {
		it.uids = map[string][]string{}
	}
	it.uids[namespace] = append([]string(nil), uids...)
	for _, uid := range uids {
		index[uid] = id
	}
	h.emit(Event{Type: ItemModified, Item: id})
	return nil
}

// UID returns the UIDs of an item in a namespace joined by spaces.
func (h *Hierarchy) UID(id ItemID, namespace string) string {
	return strings.Join(h.UIDs(id, namespace), " ")
}

// UIDs returns the UIDs of an item in a namespace.
func (h *Hierarchy) UIDs(id ItemID, namespace string) []string {
	it, ok := h.items[id]
	if !ok {
		return nil
	}
	return append([]string(nil), it.uids[namespace]...)
}

// FindByUID returns the item holding uid in namespace, or InvalidItemID.
func (h *Hierarchy) FindByUID(namespace, uid string) ItemID {
	if id, ok := h.uidIndex[namespace][uid]; ok {
		return id
	}
	return InvalidItemID
}

// SetAttribute stores a string attribute on an item. Setting the value it already has sends no
// event.
func (h *Hierarchy) SetAttribute(id ItemID, key, value string) {
	it, ok := h.items[id]
	if !ok {
		return
	}
	if old, ok := it.attributes[key]; ok && old == value {
		return
	}
	if it.attributes == nil {
		it.attributes = map[string]string{}
	}
	it.attributes[key] = value
	h.emit(Event{Type: AttributeModified, Item: id, Key: key})
}

// Attribute returns a string attribute of an item.
func (h *Hierarchy) Attribute(id ItemID, key string) (string, bool) {
	it, ok := h.items[id]
	if !ok {
		return "", false
	}
	v, ok := it.attributes[key]
	return v, ok
}

// HasAttribute reports whether an item carries the attribute key.
func (h *Hierarchy) HasAttribute(id ItemID, key string) bool {
	_, ok := h.Attribute(id, key)
	return ok
}

// AttributeNames returns the attribute names of an item, sorted.
func (h *Hierarchy) AttributeNames(id ItemID) []string {
	it, ok := h.items[id]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(it.attributes))
	for k := range it.attributes {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// SetEntity links an item to the scene entity it represents.
func (h *Hierarchy) SetEntity(id ItemID, e scene.ID) {
	it, ok := h.items[id]
	if !ok {
		return
	}
	if it.entity != scene.InvalidID && h.byEntity[it.entity] == id {
		delete(h.byEntity, it.entity)
	}
	it.entity = e
	if e != scene.InvalidID {
		h.byEntity[e] = id
	}
	h.emit(Event{Type: ItemModified, Item: id})
}

// Entity returns the scene entity an item represents.
func (h *Hierarchy) Entity(id ItemID) scene.ID {
	if it, ok := h.items[id]; ok {
		return it.entity
	}
	return scene.InvalidID
}

// ItemByEntity returns the item representing a scene entity.
func (h *Hierarchy) ItemByEntity(e scene.ID) ItemID {
	if id, ok := h.byEntity[e]; ok {
		return id
	}
	return InvalidItemID
}

// CreateEntityItem files a scene entity as a series-level child of parent.
func (h *Hierarchy) CreateEntityItem(parent ItemID, name string, e scene.ID) ItemID {
	id := h.CreateItem(parent, name, LevelSeries)
	if id != InvalidItemID {
		h.SetEntity(id, e)
	}
	return id
}

// ReferencedItems resolves the instance UIDs listed in the referenced instance UIDs attribute of
// an item. UIDs that no loaded item holds yet are skipped, so the result grows as referenced
// objects get loaded.
func (h *Hierarchy) ReferencedItems(id ItemID) []ItemID {
	refs, ok := h.Attribute(id, AttrReferencedInstanceUIDs)
	if !ok {
		return nil
	}
	var out []ItemID
	seen := map[ItemID]bool{}
	for _, uid := range strings.Fields(refs) {
		ref := h.FindByUID(UIDNamespaceInstance, uid)
		if ref == InvalidItemID || seen[ref] {
			continue
		}
		seen[ref] = true
		out = append(out, ref)
	}
	return out
}

// ReferencingItems returns the items whose referenced instance UIDs attribute names one of the
// instance UIDs of id.
func (h *Hierarchy) ReferencingItems(id ItemID) []ItemID {
	own := map[string]bool{}
	for _, uid := range h.UIDs(id, UIDNamespaceInstance) {
		own[uid] = true
	}
	if len(own) == 0 {
		return nil
	}
	var out []ItemID
	for _, other := range h.Descendants(h.root) {
		refs, ok := h.Attribute(other, AttrReferencedInstanceUIDs)
		if !ok || other == id {
			continue
		}
		for _, uid := range strings.Fields(refs) {
			if own[uid] {
				out = append(out, other)
				break
			}
		}
	}
	return out
}

// String renders the tree, one item per line, indented by depth.
func (h *Hierarchy) String() string {
	var b strings.Builder
	var visit func(ItemID, int)
	visit = func(id ItemID, depth int) {
		it := h.items[id]
		fmt.Fprintf(&b, "%s%s [%s]\n", strings.Repeat("  ", depth), it.name, it.level)
		for _, c := range it.children {
			visit(c, depth+1)
		}
	}
	visit(h.root, 0)
	return b.String()
}
