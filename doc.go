// Package lerobotyaskawa provides control of a Yaskawa NHC12 robot arm
// for LeRobot-style data collection and policy playback.
//
// The NHC12 controller speaks a line-oriented ASCII protocol over TCP/IP.
// This module owns that link: reading joint positions, commanding joint
// motion, and toggling direct teach (gravity compensation) mode so a
// human can move the arm by hand while trajectories are recorded.
//
// # Usage
//
// Write a default configuration, then record demonstrations:
//
//	lerobot-yaskawa init
//	lerobot-yaskawa record -d dataset/ --task "pick and place"
//
// Play a recorded episode back on the robot:
//
//	lerobot-yaskawa replay -d dataset/ --episode 0
//
// # Packages
//
// The module is organized into the following packages:
//
//   - cmd/lerobot-yaskawa: CLI with init, info, record, replay, teleoperate and sim commands
//   - pkg/robot: the NHC12 TCP link, protocol codec, joint limits and control modes
//   - pkg/record: direct-teach episode recording and the on-disk dataset
//   - pkg/policy: control loop that drives the arm from a policy's actions
//   - pkg/leader: SO-101 leader arm support for teleoperation
//   - pkg/teleop: leader-to-follower teleoperation controller
//   - pkg/sim: mock NHC12 controller for tests and bench use
package lerobotyaskawa
