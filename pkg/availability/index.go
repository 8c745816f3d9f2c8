package availability

import (
	"github.com/limaJavier/campus-timetabling/pkg/model"
)

// Index answers whether a faculty member, room or batch is free in a grid cell
type Index interface {
	// Books faculty, room and batch at the slot, or none of them if any is already booked
	Reserve(facultyID, roomID, batchID string, slot model.TimeSlot) error
	// Frees faculty, room and batch at the slot
	Release(facultyID, roomID, batchID string, slot model.TimeSlot)

	// Books a single resource at the slot
	Book(kind model.ResourceKind, id string, slot model.TimeSlot) error
	// Frees a single resource at the slot
	Free(kind model.ResourceKind, id string, slot model.TimeSlot)
	// Checks whether the resource is not booked at the slot
	IsFree(kind model.ResourceKind, id string, slot model.TimeSlot) bool

	FacultyFree(facultyID string, slot model.TimeSlot) bool
	RoomFree(roomID string, slot model.TimeSlot) bool
	BatchFree(batchID string, slot model.TimeSlot) bool

	// Number of booked (resource, cell) pairs
	Len() int
}

type cellKey struct {
	id   string
	day  model.Day
	slot string
}

type tableIndex struct {
	tables map[model.ResourceKind]map[cellKey]bool
}

func NewIndex() Index {
	return &tableIndex{
		tables: map[model.ResourceKind]map[cellKey]bool{
			model.ResourceFaculty: make(map[cellKey]bool),
			model.ResourceRoom:    make(map[cellKey]bool),
			model.ResourceBatch:   make(map[cellKey]bool),
		},
	}
}

func key(id string, slot model.TimeSlot) cellKey {
	return cellKey{id: id, day: slot.Day, slot: slot.ID}
}

func (index *tableIndex) Reserve(facultyID, roomID, batchID string, slot model.TimeSlot) error {
	//** Check every resource before booking any of them
	resources := [3]struct {
		kind model.ResourceKind
		id   string
	}{
		{model.ResourceFaculty, facultyID},
		{model.ResourceRoom, roomID},
		{model.ResourceBatch, batchID},
	}
	for _, resource := range resources {
		if !index.IsFree(resource.kind, resource.id, slot) {
			return occupied(resource.kind, resource.id, slot)
		}
	}

	for _, resource := range resources {
		index.tables[resource.kind][key(resource.id, slot)] = true
	}
	return nil
}

func (index *tableIndex) Release(facultyID, roomID, batchID string, slot model.TimeSlot) {
	index.Free(model.ResourceFaculty, facultyID, slot)
	index.Free(model.ResourceRoom, roomID, slot)
	index.Free(model.ResourceBatch, batchID, slot)
}

func (index *tableIndex) Book(kind model.ResourceKind, id string, slot model.TimeSlot) error {
	if !index.IsFree(kind, id, slot) {
		return occupied(kind, id, slot)
	}
	index.tables[kind][key(id, slot)] = true
	return nil
}

func (index *tableIndex) Free(kind model.ResourceKind, id string, slot model.TimeSlot) {
	delete(index.tables[kind], key(id, slot))
}

func (index *tableIndex) IsFree(kind model.ResourceKind, id string, slot model.TimeSlot) bool {
	return !index.tables[kind][key(id, slot)]
}

func (index *tableIndex) FacultyFree(facultyID string, slot model.TimeSlot) bool {
	return index.IsFree(model.ResourceFaculty, facultyID, slot)
}

func (index *tableIndex) RoomFree(roomID string, slot model.TimeSlot) bool {
	return index.IsFree(model.ResourceRoom, roomID, slot)
}

func (index *tableIndex) BatchFree(batchID string, slot model.TimeSlot) bool {
	return index.IsFree(model.ResourceBatch, batchID, slot)
}

func (index *tableIndex) Len() int {
	total := 0
	for _, table := range index.tables {
		total += len(table)
	}
	return total
}

func occupied(kind model.ResourceKind, id string, slot model.TimeSlot) error {
	return &model.AlreadyOccupiedError{
		ResourceKind: kind,
		ResourceID:   id,
		Day:          slot.Day,
		SlotID:       slot.ID,
	}
}
