// Package card converts between character records and exchange formats.
//
// Three payloads are understood:
//
//   - v2 cards: JSON tagged spec "chara_card_v2" with vendor fields under
//     data.extensions.risuai (emotion images, extra assets, bias, scripts,
//     image-generation settings)
//   - tavern cards: the flat legacy JSON (name, description, first_mes...)
//   - risu cards: a msgpack record of type 101
//
// Any of them may arrive as bare JSON or embedded in PNG tEXt chunks, under
// the "chara" key (v2 or tavern, base64 JSON) or the "risuai" key (base64
// msgpack). A PNG "chara" payload is tried as v2 first, then "risuai", then
// "chara" as tavern.
//
// Import saves every embedded image through an assets.Store and stores the
// returned handles on the record. In hub mode asset payloads are resource
// ids resolved through an assets.Fetcher instead of inline base64.
//
//	dec := card.NewDecoder(store)
//	c, err := dec.Import(ctx, data, card.FormatAuto, card.ModeNormal)
//	if card.IsNoData(err) {
//	    // not a character card
//	}
//
// Export is the inverse. ExportV2 embeds the card into the character image
// when there is one; ExportRisu writes the legacy two-key PNG.
package card
