package timeline

// UpdateAutomation pushes automated parameter values for frame to every
// track and to every clip covering frame. Clips receive their relative
// frame. Render invalidation is coalesced into one request.
func (t *Timeline) UpdateAutomation(frame int64) {
	token := t.SuspendRenderInvalidation()
	defer token.Release()
	for _, track := range t.tracks {
		track.automation.UpdateAutomated(frame)
		for _, clip := range track.clips {
			if clip.span.Intersects(frame) {
				clip.automation.UpdateAutomated(clip.RelativeFrame(frame))
			}
		}
	}
	t.InvalidateRender()
}
