// api/schemas/event.go
package schemas

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// PivotSimObj links an object id to the receptacle pivot slot it currently
// occupies.
type PivotSimObj struct {
	ObjectID string `json:"objectId"`
	PivotID  int    `json:"pivotId"`
}

// ObjectObservation is the engine's per-object report inside an event.
// The "isopen" tag is lowercase on the wire; that is the engine's spelling,
// not ours.
type ObjectObservation struct {
	ObjectID            string        `json:"objectId"`
	ObjectType          string        `json:"objectType"`
	Visible             bool          `json:"visible"`
	Pickupable          bool          `json:"pickupable"`
	Receptacle          bool          `json:"receptacle"`
	Openable            bool          `json:"openable"`
	IsOpen              bool          `json:"isopen"`
	Distance            float64       `json:"distance"`
	Position            Vector3       `json:"position"`
	ReceptacleCount     int           `json:"receptacleCount"`
	ReceptacleObjectIDs []string      `json:"receptacleObjectIds"`
	PivotSimObjs        []PivotSimObj `json:"pivotSimObjs"`
}

// Metadata is the structured half of an engine response.
type Metadata struct {
	LastActionSuccess bool                `json:"lastActionSuccess"`
	ErrorMessage      string              `json:"errorMessage"`
	SceneName         string              `json:"sceneName"`
	Agent             Agent               `json:"agent"`
	Objects           []ObjectObservation `json:"objects"`
}

// Event is the immutable result of exactly one action. The session
// controller holds the most recent Event; older events are never retained.
type Event struct {
	Metadata Metadata `json:"metadata"`
	Image    []byte   `json:"image,omitempty"`
}

// Clone deep-copies the event through a JSON round trip, matching how the
// engine-facing metadata is materialized in the first place. Used when a
// locally rejected action needs a synthetic failure event that must not
// alias the previous event's object slices.
func (e *Event) Clone() (*Event, error) {
	raw, err := json.Marshal(e.Metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event metadata: %w", err)
	}
	var md Metadata
	if err := json.Unmarshal(raw, &md); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event metadata: %w", err)
	}
	img := make([]byte, len(e.Image))
	copy(img, e.Image)
	return &Event{Metadata: md, Image: img}, nil
}

// Object returns the observation for the given object id, if present.
func (e *Event) Object(objectID string) (ObjectObservation, bool) {
	for _, obj := range e.Metadata.Objects {
		if obj.ObjectID == objectID {
			return obj, true
		}
	}
	return ObjectObservation{}, false
}
