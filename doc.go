/*
Package fastresume reconciles the parameters a torrent is added with against resume data saved by
an earlier session, and produces new resume data from live torrent state without blocking the
engine.

A Session holds torrents. AddTorrent assembles each torrent's starting configuration: every field
class is resolved between the caller's AddTorrentParams and the decoded resume data according to
reconcile.Policies and the caller's flags. The transfer engine reports progress through the Torrent
hooks, and Torrent.Status reads a consistent snapshot with event times expressed as ages.

Saving is asynchronous. Torrent.SaveResumeData arms a capture and returns at once. A single
goroutine per session takes the capture under the torrent lock, encodes it, and delivers a
SaveResumeDataAlert or SaveResumeDataFailedAlert through the session's alert queue.
*/
package fastresume
