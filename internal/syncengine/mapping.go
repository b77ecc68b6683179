// SPDX-License-Identifier: MIT

package syncengine

import (
	"github.com/xtreamcache/xtreamcache/internal/catalog"
	"github.com/xtreamcache/xtreamcache/internal/xtream"
)

func mapCategory(account string, kind catalog.CategoryKind, w xtream.WireCategory) catalog.Category {
	return catalog.Category{
		Account:    account,
		Kind:       kind,
		CategoryID: w.CategoryID.String(),
		Name:       w.CategoryName,
		ParentID:   w.ParentID.String(),
	}
}

func mapChannel(account string, w xtream.WireChannel) catalog.Channel {
	return catalog.Channel{
		Account:         account,
		StreamID:        w.StreamID.Int64(),
		Name:            w.Name,
		Number:          int(w.Num.Int64()),
		IconURL:         w.StreamIcon,
		EPGChannelID:    w.EPGChannelID,
		CategoryID:      w.CategoryID.String(),
		ArchiveDuration: int(w.TVArchiveDur.Int64()),
	}
}

func mapMovie(account string, w xtream.WireMovie) catalog.Movie {
	return catalog.Movie{
		Account:          account,
		StreamID:         w.StreamID.Int64(),
		Name:             w.Name,
		Rating:           w.Rating.Float64(),
		Rating5Based:     w.Rating5Based.Float64(),
		CategoryID:       w.CategoryID.String(),
		ContainerExt:     w.ContainerExt,
		LastModifiedWire: w.Added,
	}
}

// mergeMovieInfo fills in the fields only available from get_vod_info.
// syncMovies applies it to every movie on a full sync, and on an
// incremental sync only to movies that are new or whose upstream added
// timestamp changed.
func mergeMovieInfo(m catalog.Movie, info *xtream.WireMovieInfo) catalog.Movie {
	m.Title = info.Info.Name
	m.Plot = info.Info.Plot
	m.Cast = info.Info.Cast
	m.Director = info.Info.Director
	m.Genre = info.Info.Genre
	m.ReleaseDate = info.Info.ReleaseDate
	m.TMDBID = info.Info.TMDBID.String()
	return m
}

func mapSeries(account string, w xtream.WireSeries) catalog.Series {
	return catalog.Series{
		Account:          account,
		SeriesID:         w.SeriesID.Int64(),
		Name:             w.Name,
		CoverURL:         w.Cover,
		Plot:             w.Plot,
		Cast:             w.Cast,
		Director:         w.Director,
		Genre:            w.Genre,
		Rating:           w.Rating.String(),
		Rating5Based:     w.Rating5Based.Float64(),
		CategoryID:       w.CategoryID.String(),
		LastModifiedWire: w.LastModified.String(),
	}
}

func mapSeriesDetails(account string, seriesID int64, base catalog.Series, w *xtream.WireSeriesInfo) catalog.SeriesDetails {
	base.Title = w.Info.Name
	base.CoverURL = w.Info.Cover
	base.Plot = w.Info.Plot
	base.Cast = w.Info.Cast
	base.Director = w.Info.Director
	base.Genre = w.Info.Genre
	base.Rating = w.Info.Rating.String()
	base.Rating5Based = w.Info.Rating5Based.Float64()
	base.CategoryID = w.Info.CategoryID.String()
	base.TMDBID = w.Info.TMDBID.String()
	base.LastModifiedWire = w.Info.LastModified.String()

	details := catalog.SeriesDetails{Series: base}
	for _, sn := range w.Seasons {
		details.Seasons = append(details.Seasons, catalog.Season{
			Account:      account,
			SeriesID:     seriesID,
			SeasonNumber: sn.SeasonNumber,
			Name:         sn.Name,
			EpisodeCount: sn.EpisodeCount,
			Overview:     sn.Overview,
			AirDate:      sn.AirDate,
			CoverURL:     sn.Cover,
			VoteAverage:  sn.VoteAverage.Float64(),
		})
	}
	for seasonKey, eps := range w.Episodes {
		seasonNum := parseSeasonKey(seasonKey)
		for _, ep := range eps {
			details.Episodes = append(details.Episodes, catalog.Episode{
				Account:      account,
				SeriesID:     seriesID,
				EpisodeID:    ep.ID.String(),
				SeasonNumber: seasonNum,
				EpisodeNum:   ep.EpisodeNum.String(),
				Title:        ep.Title,
				ContainerExt: ep.ContainerExt,
				AddedWire:    ep.Added,
				InfoJSON:     string(ep.Info),
			})
		}
	}
	return details
}

func parseSeasonKey(key string) int {
	n := 0
	for _, r := range key {
		if r < '0' || r > '9' {
			return n
		}
		n = n*10 + int(r-'0')
	}
	return n
}
