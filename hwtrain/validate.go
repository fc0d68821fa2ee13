package hwtrain

import (
	"github.com/Wukong90/Fast-Writer-Adaptation/anyctc"
	"github.com/Wukong90/Fast-Writer-Adaptation/errrate"
	"github.com/Wukong90/Fast-Writer-Adaptation/hwnet"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Validate transcribes every sample with greedy decoding
// and tallies the character and word errors.
func Validate(model *hwnet.Model, samples anyctc.SampleList, batchSize int) (errrate.Tally, error) {
	var tally errrate.Tally
	for i := 0; i < samples.Len(); i += batchSize {
		end := min(i+batchSize, samples.Len())
		sub, ok := samples.Slice(i, end).(anyctc.SampleList)
		if !ok {
			return tally, errors.Errorf("validate: slice of %T is not a sample list", samples)
		}
		batch, err := anyctc.FetchBatch(sub)
		if err != nil {
			return tally, errors.Wrapf(err, "validate batch at %d", i)
		}
		hyps, err := model.Transcribe(batch.Inputs, sub.Len())
		if err != nil {
			return tally, errors.Wrapf(err, "validate batch at %d", i)
		}
		results := errrate.Score(batch.Transcripts, hyps)
		if klog.V(2).Enabled() {
			for j, r := range results {
				klog.Infof("ref=%q hyp=%q cer=%s", batch.Transcripts[j], hyps[j], r.Chars)
			}
		}
		tally.Merge(errrate.Sum(results))
	}
	return tally, nil
}
