// SPDX-License-Identifier: MIT

// Package xtream fetches and decodes catalog content from an Xtream-style
// IPTV panel: categories, live channels, VOD movies and series, tolerating
// the inconsistent JSON numeric/string encoding those panels are known to
// emit.
package xtream

import (
	"encoding/json"
	"strconv"
)

// FlexString decodes a JSON field that a panel may emit as either a string
// or a bare number, normalizing both to a string. Xtream panels are
// notoriously inconsistent about this across category_id, series_id and
// similar fields, the same tolerant-decoding problem the teacher's Enigma2
// gateway solves for its own non-UTF-8 XML feeds.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

func (f FlexString) String() string { return string(f) }

// Int64 parses the flex string as an integer, returning 0 if it isn't one.
func (f FlexString) Int64() int64 {
	n, _ := strconv.ParseInt(string(f), 10, 64)
	return n
}

// Float64 parses the flex string as a float, returning 0 if it isn't one.
func (f FlexString) Float64() float64 {
	n, _ := strconv.ParseFloat(string(f), 64)
	return n
}

// WireCategory is the raw get_live_categories / get_vod_categories /
// get_series_categories response shape; identical across all three content
// types.
type WireCategory struct {
	CategoryID   FlexString `json:"category_id"`
	CategoryName string     `json:"category_name"`
	ParentID     FlexString `json:"parent_id"`
}

// WireChannel is the raw get_live_streams response shape.
type WireChannel struct {
	StreamID        FlexString `json:"stream_id"`
	Name            string     `json:"name"`
	StreamIcon      string     `json:"stream_icon"`
	EPGChannelID    string     `json:"epg_channel_id"`
	Num             FlexString `json:"num"`
	CategoryID      FlexString `json:"category_id"`
	TVArchive       FlexString `json:"tv_archive"`
	TVArchiveDur    FlexString `json:"tv_archive_duration"`
}

// WireMovie is the raw get_vod_streams response shape.
type WireMovie struct {
	StreamID     FlexString `json:"stream_id"`
	Name         string     `json:"name"`
	Rating       FlexString `json:"rating"`
	Rating5Based FlexString `json:"rating_5based"`
	CategoryID   FlexString `json:"category_id"`
	ContainerExt string     `json:"container_extension"`
	Added        string     `json:"added"`
}

// WireMovieInfo is the raw get_vod_info response's "info"/"movie_data" pair.
type WireMovieInfo struct {
	Info struct {
		Name         string     `json:"name"`
		Plot         string     `json:"plot"`
		Cast         string     `json:"cast"`
		Director     string     `json:"director"`
		Genre        string     `json:"genre"`
		ReleaseDate  string     `json:"releasedate"`
		Rating       FlexString `json:"rating"`
		TMDBID       FlexString `json:"tmdb_id"`
	} `json:"info"`
	MovieData struct {
		StreamID     FlexString `json:"stream_id"`
		ContainerExt string     `json:"container_extension"`
	} `json:"movie_data"`
}

// WireSeries is the raw get_series response shape.
type WireSeries struct {
	SeriesID     FlexString `json:"series_id"`
	Name         string     `json:"name"`
	Cover        string     `json:"cover"`
	Plot         string     `json:"plot"`
	Cast         string     `json:"cast"`
	Director     string     `json:"director"`
	Genre        string     `json:"genre"`
	ReleaseDate  string     `json:"releaseDate"`
	Rating       FlexString `json:"rating"`
	Rating5Based FlexString `json:"rating_5based"`
	CategoryID   FlexString `json:"category_id"`
	LastModified FlexString `json:"last_modified"`
}

// WireSeriesInfo is the raw get_series_info response shape: series metadata
// plus a seasons list and an episodes map keyed by season number string.
type WireSeriesInfo struct {
	Info struct {
		Name         string     `json:"name"`
		Cover        string     `json:"cover"`
		Plot         string     `json:"plot"`
		Cast         string     `json:"cast"`
		Director     string     `json:"director"`
		Genre        string     `json:"genre"`
		ReleaseDate  string     `json:"releaseDate"`
		Rating       FlexString `json:"rating"`
		Rating5Based FlexString `json:"rating_5based"`
		CategoryID   FlexString `json:"category_id"`
		TMDBID       FlexString `json:"tmdb_id"`
		LastModified FlexString `json:"last_modified"`
	} `json:"info"`
	Seasons []struct {
		SeasonNumber int        `json:"season_number"`
		Name         string     `json:"name"`
		EpisodeCount int        `json:"episode_count"`
		Overview     string     `json:"overview"`
		AirDate      string     `json:"air_date"`
		Cover        string     `json:"cover"`
		VoteAverage  FlexString `json:"vote_average"`
	} `json:"seasons"`
	Episodes map[string][]struct {
		ID           FlexString `json:"id"`
		EpisodeNum   FlexString `json:"episode_num"`
		Title        string     `json:"title"`
		ContainerExt string     `json:"container_extension"`
		Added        string     `json:"added"`
		Info         json.RawMessage `json:"info"`
	} `json:"episodes"`
}
