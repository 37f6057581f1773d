package types_test

import (
	"encoding/json"
	"testing"
	"time"

	types "github.com/llavero/llavero/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestIdentificationRecord(t *testing.T) {
	Convey("Given an IdentificationRecord struct", t, func() {
		Convey("When creating a new record", func() {
			at := time.Date(2026, 8, 30, 9, 15, 0, 0, time.UTC)
			rec := types.IdentificationRecord{
				ID:               "attempt-123",
				SubjectID:        "subject-7",
				Name:             "Ana Torres",
				Distance:         0.38,
				MatchCount:       2,
				TotalDescriptors: 3,
				At:               at,
			}

			Convey("Then it should have the correct values", func() {
				So(rec.ID, ShouldEqual, "attempt-123")
				So(rec.SubjectID, ShouldEqual, "subject-7")
				So(rec.Name, ShouldEqual, "Ana Torres")
				So(rec.Distance, ShouldEqual, 0.38)
				So(rec.MatchCount, ShouldEqual, 2)
				So(rec.TotalDescriptors, ShouldEqual, 3)
				So(rec.At, ShouldEqual, at)
			})
		})

		Convey("When creating a record with zero values", func() {
			rec := types.IdentificationRecord{}

			Convey("Then it should have default values", func() {
				So(rec.ID, ShouldEqual, "")
				So(rec.SubjectID, ShouldEqual, "")
				So(rec.Distance, ShouldEqual, 0.0)
				So(rec.MatchCount, ShouldEqual, 0)
			})
		})

		Convey("When marshaling to JSON", func() {
			rec := types.IdentificationRecord{
				ID:        "attempt-1",
				SubjectID: "subject-1",
				Distance:  0.5,
			}
			data, err := json.Marshal(rec)

			Convey("Then the snake_case keys are used and the empty name is omitted", func() {
				So(err, ShouldBeNil)
				So(string(data), ShouldContainSubstring, `"subject_id":"subject-1"`)
				So(string(data), ShouldContainSubstring, `"match_count":0`)
				So(string(data), ShouldNotContainSubstring, `"name"`)
			})
		})
	})
}
