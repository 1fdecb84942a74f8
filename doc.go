/*
bondtrack watches the camera feed of a wire bonding machine and keeps a
smooth, frame by frame position estimate of the bonder tip and the gold
wire reel.

Detection runs on a background goroutine through the Detector, which
accepts at most one frame at a time and publishes its latest results for
the main loop to poll without blocking.  Between detections the tracker
package carries each target forward with an OpenCV visual tracker, an
optical flow refiner for the tip and a constant velocity Kalman filter.

See the monitor program under the example subdirectory for the complete
capture, detect, track and display loop.
*/
package bondtrack
