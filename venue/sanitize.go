package venue

import (
	"errors"
	"fmt"
	"strconv"
)

// Source dataset column names. The upstream sheet is authored in Japanese;
// columns not listed here are carried through as extra fields.
const (
	ColName        = "スポット名"
	ColLatitude    = "緯度"
	ColLongitude   = "経度"
	ColCategory    = "カテゴリ"
	ColTags        = "タグ"
	ColHours       = "営業時間"
	ColClosedDays  = "定休日"
	ColArea        = "エリア"
	ColAddress     = "住所"
	ColPhone       = "TEL"
	ColWebsite     = "公式サイト"
	ColInstagram   = "Instagram"
	ColTwitter     = "X"
	ColFacebook    = "Facebook"
	ColReservation = "予約有無"
	ColParking     = "駐車場"
	ColIntro       = "紹介文"
	ColTimestamp   = "タイムスタンプ"
)

var imageCols = [NumImages]string{"画像", "画像2", "画像3", "画像4", "画像5"}

// ErrRejected signals that a raw row cannot become a Record. Callers skip the
// row and count it; rejection is never fatal to an ingestion.
var ErrRejected = errors.New("row rejected")

// Sanitize validates and canonicalizes one raw tabular row. The returned
// record's Index is the caller-assigned position among accepted rows. Image
// URLs are rewritten through resolve; a nil resolve keeps them as-is.
func Sanitize(row map[string]string, index int, resolve func(string) string) (Record, error) {
	name := Normalize(row[ColName])
	if name == "" {
		return Record{}, fmt.Errorf("%w: empty name", ErrRejected)
	}

	lat, err := parseCoord(row[ColLatitude])
	if err != nil {
		return Record{}, fmt.Errorf("%w: latitude: %v", ErrRejected, err)
	}

	lng, err := parseCoord(row[ColLongitude])
	if err != nil {
		return Record{}, fmt.Errorf("%w: longitude: %v", ErrRejected, err)
	}

	ans := Record{
		Index:       index,
		Name:        name,
		Latitude:    lat,
		Longitude:   lng,
		Category:    NormalizeCell(row[ColCategory]),
		Tags:        NormalizeCell(row[ColTags]),
		Hours:       NormalizeCell(row[ColHours]),
		ClosedDays:  NormalizeCell(row[ColClosedDays]),
		Area:        NormalizeCell(row[ColArea]),
		Address:     NormalizeCell(row[ColAddress]),
		Phone:       NormalizeCell(row[ColPhone]),
		Website:     NormalizeCell(row[ColWebsite]),
		Instagram:   NormalizeCell(row[ColInstagram]),
		Twitter:     NormalizeCell(row[ColTwitter]),
		Facebook:    NormalizeCell(row[ColFacebook]),
		Reservation: NormalizeCell(row[ColReservation]),
		Parking:     NormalizeCell(row[ColParking]),
		Intro:       NormalizeCell(row[ColIntro]),
		Timestamp:   NormalizeCell(row[ColTimestamp]),
	}

	for i, col := range imageCols {
		u := NormalizeCell(row[col])
		if u != "" && resolve != nil {
			u = resolve(u)
		}

		ans.Images[i] = u
	}

	for k, v := range row {
		if knownColumn(k) {
			continue
		}

		if ans.Extra == nil {
			ans.Extra = make(map[string]string)
		}

		ans.Extra[k] = NormalizeCell(v)
	}

	return ans, nil
}

func parseCoord(s string) (float64, error) {
	v, err := strconv.ParseFloat(Normalize(s), 64)
	if err != nil {
		return 0, err
	}

	if !isFinite(v) {
		return 0, fmt.Errorf("not finite: %q", s)
	}

	return v, nil
}

func knownColumn(name string) bool {
	switch name {
	case ColName, ColLatitude, ColLongitude, ColCategory, ColTags, ColHours,
		ColClosedDays, ColArea, ColAddress, ColPhone, ColWebsite,
		ColInstagram, ColTwitter, ColFacebook, ColReservation, ColParking,
		ColIntro, ColTimestamp:
		return true
	}

	for _, c := range imageCols {
		if name == c {
			return true
		}
	}

	return false
}
